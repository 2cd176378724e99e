// Package game holds the embedded game record of a room: position,
// move history, result, and wall-clock time accounting. Clocks are
// passive; they are charged when the mover acts and swept externally
// for flag-fall against a silent player.
package game

import (
	"time"

	"github.com/quickmate/server/internal/v1/chessrules"
	"github.com/quickmate/server/internal/v1/wire"
)

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Status is the closed set of game outcomes.
type Status string

const (
	StatusActive    Status = "active"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
	StatusDraw      Status = "draw"
	StatusResigned  Status = "resigned"
	StatusTimeout   Status = "timeout"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status ends the game.
func (s Status) Terminal() bool { return s != StatusActive }

// TimeControl configures the clocks, in seconds.
type TimeControl struct {
	Initial   int `json:"initial"`
	Increment int `json:"increment"`
}

// Move is one accepted move record.
type Move struct {
	From          string `json:"from"`
	To            string `json:"to"`
	SAN           string `json:"san"`
	Promotion     string `json:"promotion,omitempty"`
	PositionAfter string `json:"positionAfter"`
	Timestamp     int64  `json:"timestamp"` // epoch ms
}

// Game is the embedded game record of a room in progress or finished.
type Game struct {
	Position    string       `json:"position"` // FEN
	Turn        Color        `json:"turn"`
	Moves       []Move       `json:"moves"`
	Status      Status       `json:"status"`
	Winner      Color        `json:"winner,omitempty"`
	WhiteTime   *int64       `json:"whiteTime"` // ms remaining, nil without time control
	BlackTime   *int64       `json:"blackTime"`
	StartedAt   int64        `json:"startedAt"`  // epoch ms
	LastMoveAt  int64        `json:"lastMoveAt"` // epoch ms; StartedAt until the first move
	TimeControl *TimeControl `json:"timeControl,omitempty"`
}

// New creates an active game from the standard starting position with
// both clocks, if any, at the configured initial time.
func New(tc *TimeControl, now time.Time) *Game {
	g := &Game{
		Position:    chessrules.StartingFEN,
		Turn:        White,
		Moves:       []Move{},
		Status:      StatusActive,
		StartedAt:   now.UnixMilli(),
		LastMoveAt:  now.UnixMilli(),
		TimeControl: tc,
	}
	if tc != nil {
		initial := int64(tc.Initial) * 1000
		w, b := initial, initial
		g.WhiteTime = &w
		g.BlackTime = &b
	}
	return g
}

// clock returns the mover's clock slot, nil without time control.
func (g *Game) clock(c Color) *int64 {
	if c == White {
		return g.WhiteTime
	}
	return g.BlackTime
}

// chargeMover deducts elapsed wall-clock time from the mover and adds
// the increment. It reports whether the clock expired at the charge;
// an expired clock is left at its (non-positive) remainder.
func (g *Game) chargeMover(mover Color, now time.Time) (expired bool) {
	clk := g.clock(mover)
	if clk == nil {
		return false
	}
	elapsed := now.UnixMilli() - g.LastMoveAt
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := *clk - elapsed
	if remaining <= 0 {
		*clk = remaining
		return true
	}
	*clk = remaining + int64(g.TimeControl.Increment)*1000
	return false
}

// ApplyMove validates and applies a move by the given side, charging its
// clock. Flag-fall detected at charge time is canonical: the move is
// still recorded but the game ends with StatusTimeout and the other side
// wins, regardless of what the move would otherwise produce on the
// board.
//
// Rejections: wire.ErrGameNotInProgress, wire.ErrNotYourTurn,
// wire.ErrInvalidMove, wire.ErrPromotionRequired.
func (g *Game) ApplyMove(mover Color, from, to, promotion string, now time.Time) (*Move, error) {
	if g.Status != StatusActive {
		return nil, wire.ErrGameNotInProgress
	}
	if g.Turn != mover {
		return nil, wire.ErrNotYourTurn
	}

	res, err := chessrules.Apply(g.Position, from, to, promotion)
	if err != nil {
		switch err {
		case chessrules.ErrPromotionRequired:
			return nil, wire.ErrPromotionRequired
		case chessrules.ErrInvalidMove:
			return nil, wire.ErrInvalidMove
		default:
			return nil, err
		}
	}

	expired := g.chargeMover(mover, now)

	move := Move{
		From:          from,
		To:            to,
		SAN:           res.SAN,
		Promotion:     promotion,
		PositionAfter: res.FEN,
		Timestamp:     now.UnixMilli(),
	}
	g.Moves = append(g.Moves, move)
	g.Position = res.FEN
	g.Turn = Color(res.Turn)
	g.LastMoveAt = now.UnixMilli()

	switch {
	case expired:
		g.Status = StatusTimeout
		g.Winner = mover.Other()
	case res.Outcome == chessrules.OutcomeCheckmate:
		g.Status = StatusCheckmate
		g.Winner = mover
	case res.Outcome == chessrules.OutcomeStalemate:
		g.Status = StatusStalemate
	case res.Outcome == chessrules.OutcomeDraw:
		g.Status = StatusDraw
	}
	return &g.Moves[len(g.Moves)-1], nil
}

// FlagFallen reports whether the side on move has run out of time as of
// now, without mutating the clocks. Used by the active sweep.
func (g *Game) FlagFallen(now time.Time) bool {
	if g.Status != StatusActive {
		return false
	}
	clk := g.clock(g.Turn)
	if clk == nil {
		return false
	}
	return *clk-(now.UnixMilli()-g.LastMoveAt) <= 0
}

// EndTimeout ends the game with a flag-fall loss for the side on move,
// zeroing its clock.
func (g *Game) EndTimeout(now time.Time) {
	if g.Status != StatusActive {
		return
	}
	if clk := g.clock(g.Turn); clk != nil {
		remaining := *clk - (now.UnixMilli() - g.LastMoveAt)
		*clk = remaining
	}
	g.Status = StatusTimeout
	g.Winner = g.Turn.Other()
}

// End finishes the game with the given status and winner. Used for
// resignation, accepted draws, and abandonment.
func (g *Game) End(status Status, winner Color) {
	if g.Status != StatusActive {
		return
	}
	g.Status = status
	g.Winner = winner
}

// Clone returns a deep copy, so store reads can hand out coherent
// snapshots while the authoritative record keeps mutating.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	dup := *g
	dup.Moves = append([]Move(nil), g.Moves...)
	if g.WhiteTime != nil {
		w := *g.WhiteTime
		dup.WhiteTime = &w
	}
	if g.BlackTime != nil {
		b := *g.BlackTime
		dup.BlackTime = &b
	}
	if g.TimeControl != nil {
		tc := *g.TimeControl
		dup.TimeControl = &tc
	}
	return &dup
}
