// Package commands implements the operator commands: add, playlist, move,
// remove and check. Each runs on the dispatcher goroutine and talks to the
// operator only through a cui.Cui.
package commands

import (
	"context"
	"errors"
	"fmt"

	"musync/internal/bridge"
	"musync/internal/cui"
	"musync/internal/library"
	"musync/internal/store"
)

// ErrNoDAP is returned by commands that need a mounted player when none is configured.
var ErrNoDAP = errors.New("no DAP configured")

// Kind identifies a command.
type Kind int

const (
	KindAdd Kind = iota
	KindPlaylist
	KindMove
	KindRemove
	KindCheck
)

// Kinds lists every command in tab order.
var Kinds = []Kind{KindAdd, KindPlaylist, KindMove, KindRemove, KindCheck}

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindPlaylist:
		return "playlist"
	case KindMove:
		return "move"
	case KindRemove:
		return "remove"
	case KindCheck:
		return "check"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Description is the one-line summary shown above the form.
func (k Kind) Description() string {
	switch k {
	case KindAdd:
		return "Add songs to the library"
	case KindPlaylist:
		return "Rewrite the playlists on the DAP"
	case KindMove:
		return "Move songs in the library"
	case KindRemove:
		return "Remove songs from the library"
	case KindCheck:
		return "Find and resolve PC, DAP and DB discrepancies"
	default:
		return ""
	}
}

// Field is a form input of a command.
type Field int

const (
	FieldPath Field = iota
	FieldTarget
	FieldIgnoreDAPContent
)

// FieldSpec describes how the UI presents a field.
type FieldSpec struct {
	Field       Field
	Label       string
	Placeholder string
	Toggle      bool // checkbox instead of text
}

// Fields returns the inputs of k in display order.
func (k Kind) Fields() []FieldSpec {
	switch k {
	case KindAdd:
		return []FieldSpec{{Field: FieldPath, Label: "Library path of songs to add", Placeholder: "Artist/Album"}}
	case KindMove:
		return []FieldSpec{
			{Field: FieldPath, Label: "From", Placeholder: "Artist/Old"},
			{Field: FieldTarget, Label: "To", Placeholder: "Artist/New"},
		}
	case KindRemove:
		return []FieldSpec{{Field: FieldPath, Label: "Library path to remove", Placeholder: "Artist/Album/01.flac"}}
	case KindCheck:
		return []FieldSpec{
			{Field: FieldPath, Label: "Library path to check", Placeholder: "empty checks everything"},
			{Field: FieldIgnoreDAPContent, Label: "Ignore DAP file content (-i)", Toggle: true},
		}
	default:
		return nil
	}
}

// Args are the form values a command is built from.
type Args struct {
	Path             string
	Target           string
	IgnoreDAPContent bool
}

// Env is what commands operate on. DAP and Playlists are nil without a player.
type Env struct {
	Library   *library.Dir
	DAP       *library.Dir
	Playlists *library.Dir // playlist directory on the DAP
	Store     *store.Store
}

// Command is one of Add, Playlist, Move, Remove or Check.
type Command interface {
	Kind() Kind
	Label() string
	Run(ctx context.Context, env *Env, c cui.Cui) error

	sealed()
}

// New builds the command of kind k from form values.
func New(k Kind, a Args) (Command, error) {
	switch k {
	case KindAdd:
		return Add{Path: a.Path}, nil
	case KindPlaylist:
		return Playlist{}, nil
	case KindMove:
		return Move{From: a.Path, To: a.Target}, nil
	case KindRemove:
		return Remove{Path: a.Path}, nil
	case KindCheck:
		return Check{Path: a.Path, IgnoreDAPContent: a.IgnoreDAPContent}, nil
	default:
		return nil, fmt.Errorf("unknown command %s", k)
	}
}

// Default returns k's command with empty arguments.
func Default(k Kind) Command {
	cmd, err := New(k, Args{})
	if err != nil {
		return nil
	}
	return cmd
}

// Bind adapts cmd to the dispatcher, closing over env.
func (e *Env) Bind(cmd Command) bridge.Command {
	return bridge.CommandFunc{
		Name: cmd.Label(),
		Fn: func(ctx context.Context, c cui.Cui) error {
			return cmd.Run(ctx, e, c)
		},
	}
}

func (e *Env) requireDAP() error {
	if e.DAP == nil {
		return ErrNoDAP
	}
	return nil
}

func withPath(name, p string) string {
	if p = library.Clean(p); p != "" {
		return name + " " + p
	}
	return name
}
