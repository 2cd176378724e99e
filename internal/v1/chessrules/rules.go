// Package chessrules wraps the notnil/chess rules library behind the
// small surface the room engine needs: apply a candidate move against a
// position encoding, report the terminal condition if any, and expose
// side-to-move. The engine never touches library types directly.
package chessrules

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// StartingFEN is the standard initial position encoding.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Outcome classifies the position after an applied move.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCheckmate
	OutcomeStalemate
	OutcomeDraw // drawn by rule: insufficient material, 75 moves, fivefold
)

// Rejections from Apply. The engine maps these to wire error codes.
var (
	ErrInvalidMove       = errors.New("move is not legal in this position")
	ErrPromotionRequired = errors.New("move requires a promotion piece")
)

// Result describes an accepted move.
type Result struct {
	SAN     string  // the move in Standard Algebraic Notation
	FEN     string  // position encoding after the move
	Turn    string  // side to move after the move: "white" or "black"
	Check   bool    // whether the move gives check
	Outcome Outcome // terminal condition, OutcomeNone while play continues
}

// Apply validates from/to/promotion against the position encoded by fen
// and returns the resulting position. Promotion is one of "q", "r", "b",
// "n" or empty.
//
// A pawn reaching the last rank without a promotion selection is
// rejected with ErrPromotionRequired; a promotion selection on a move
// that does not promote is rejected with ErrInvalidMove.
func Apply(fen, from, to, promotion string) (Result, error) {
	game, err := load(fen)
	if err != nil {
		return Result{}, err
	}

	s1, ok := parseSquare(from)
	if !ok {
		return Result{}, ErrInvalidMove
	}
	s2, ok := parseSquare(to)
	if !ok {
		return Result{}, ErrInvalidMove
	}
	promo := promoPiece(promotion)

	var move *chess.Move
	promotes := false
	for _, m := range game.ValidMoves() {
		if m.S1() != s1 || m.S2() != s2 {
			continue
		}
		if m.Promo() != chess.NoPieceType {
			promotes = true
		}
		if m.Promo() == promo {
			move = m
			break
		}
	}
	if move == nil {
		if promotes && promo == chess.NoPieceType {
			return Result{}, ErrPromotionRequired
		}
		return Result{}, ErrInvalidMove
	}
	if !promotes && promo != chess.NoPieceType {
		// promotion piece supplied on a non-promoting move
		return Result{}, ErrInvalidMove
	}

	san := chess.AlgebraicNotation{}.Encode(game.Position(), move)
	if err := game.Move(move); err != nil {
		return Result{}, ErrInvalidMove
	}

	pos := game.Position()
	res := Result{
		SAN:     san,
		FEN:     pos.String(),
		Turn:    colorName(pos.Turn()),
		Check:   move.HasTag(chess.Check),
		Outcome: outcome(game),
	}
	return res, nil
}

// SideToMove reports whose turn it is in the position encoded by fen.
func SideToMove(fen string) (string, error) {
	game, err := load(fen)
	if err != nil {
		return "", err
	}
	return colorName(game.Position().Turn()), nil
}

func load(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("bad position encoding: %w", err)
	}
	return chess.NewGame(opt), nil
}

func parseSquare(s string) (chess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.NoSquare, false
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	return chess.Square(rank*8 + file), true
}

func promoPiece(p string) chess.PieceType {
	switch p {
	case "q":
		return chess.Queen
	case "r":
		return chess.Rook
	case "b":
		return chess.Bishop
	case "n":
		return chess.Knight
	}
	return chess.NoPieceType
}

func colorName(c chess.Color) string {
	if c == chess.White {
		return "white"
	}
	return "black"
}

func outcome(g *chess.Game) Outcome {
	switch g.Outcome() {
	case chess.NoOutcome:
		return OutcomeNone
	case chess.Draw:
		if g.Method() == chess.Stalemate {
			return OutcomeStalemate
		}
		return OutcomeDraw
	default:
		return OutcomeCheckmate
	}
}
