package game

import (
	"math/rand"
	"testing"
)

func TestApplyMoveRejectsBadIndex(t *testing.T) {
	for _, index := range []int{-1, 9, 100} {
		board := NewBoard()
		outcome := ApplyMove(board, SymbolX, index)
		if outcome.Status != MoveInvalidIndex {
			t.Errorf("index %d: got status %v, want MoveInvalidIndex", index, outcome.Status)
		}
		for i, cell := range board {
			if cell != CellEmpty {
				t.Errorf("index %d: board[%d] mutated to %d", index, i, cell)
			}
		}
	}
}

func TestApplyMoveRejectsTakenCell(t *testing.T) {
	board := NewBoard()
	if outcome := ApplyMove(board, SymbolX, 4); outcome.Status != MoveContinue {
		t.Fatalf("first move: got status %v, want MoveContinue", outcome.Status)
	}
	outcome := ApplyMove(board, SymbolO, 4)
	if outcome.Status != MoveCellTaken {
		t.Fatalf("second move on same cell: got status %v, want MoveCellTaken", outcome.Status)
	}
	if board[4] != CellX {
		t.Fatalf("board[4] = %d, want %d (unchanged)", board[4], CellX)
	}
}

func TestApplyMoveAlternatesTurn(t *testing.T) {
	board := NewBoard()
	outcome := ApplyMove(board, SymbolX, 0)
	if outcome.Status != MoveContinue || outcome.NextTurn != SymbolO {
		t.Fatalf("got %+v, want MoveContinue with next turn O", outcome)
	}
	outcome = ApplyMove(board, SymbolO, 1)
	if outcome.Status != MoveContinue || outcome.NextTurn != SymbolX {
		t.Fatalf("got %+v, want MoveContinue with next turn X", outcome)
	}
}

func TestApplyMoveDetectsWin(t *testing.T) {
	tests := []struct {
		name  string
		setup []int // cells pre-marked for X
		move  int
	}{
		{"top row", []int{0, 1}, 2},
		{"middle column", []int{1, 4}, 7},
		{"main diagonal", []int{0, 4}, 8},
		{"anti diagonal", []int{2, 4}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := NewBoard()
			for _, i := range tt.setup {
				board[i] = CellX
			}
			outcome := ApplyMove(board, SymbolX, tt.move)
			if outcome.Status != MoveWin {
				t.Fatalf("got status %v, want MoveWin", outcome.Status)
			}
			if outcome.Winner != SymbolX {
				t.Fatalf("got winner %q, want X", outcome.Winner)
			}
		})
	}
}

func TestApplyMoveDetectsDraw(t *testing.T) {
	// X O X
	// X O O
	// O X _   -> X plays 8, no line completes
	board := []int{CellX, CellO, CellX, CellX, CellO, CellO, CellO, CellX, CellEmpty}
	outcome := ApplyMove(board, SymbolX, 8)
	if outcome.Status != MoveDraw {
		t.Fatalf("got status %v, want MoveDraw", outcome.Status)
	}
}

func TestCheckWinnerEmptyBoard(t *testing.T) {
	if w := CheckWinner(NewBoard()); w != SymbolNone {
		t.Fatalf("empty board: got winner %q", w)
	}
}

func TestCheckWinnerAllLines(t *testing.T) {
	for i, line := range winningLines {
		board := NewBoard()
		for _, cell := range line {
			board[cell] = CellO
		}
		if w := CheckWinner(board); w != SymbolO {
			t.Errorf("line %d %v: got winner %q, want O", i, line, w)
		}
	}
}

func TestAssignSymbolsCoversBothOrders(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	seenXFirst, seenOFirst := false, false
	for i := 0; i < 100; i++ {
		first, second := AssignSymbols(r)
		if first == second {
			t.Fatalf("identical symbols assigned: %q %q", first, second)
		}
		if first.Other() != second {
			t.Fatalf("symbols not complementary: %q %q", first, second)
		}
		if first == SymbolX {
			seenXFirst = true
		} else {
			seenOFirst = true
		}
	}
	if !seenXFirst || !seenOFirst {
		t.Fatalf("assignment not randomized: xFirst=%v oFirst=%v", seenXFirst, seenOFirst)
	}
}

func TestSymbolOther(t *testing.T) {
	if SymbolX.Other() != SymbolO || SymbolO.Other() != SymbolX {
		t.Fatal("Other does not toggle X and O")
	}
	if SymbolNone.Other() != SymbolNone {
		t.Fatal("Other of no symbol must stay empty")
	}
}
