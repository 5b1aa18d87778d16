package game

import "math/rand"

// BoardSize is the number of cells on a 3x3 board.
const BoardSize = 9

// Cell values on the board.
const (
	CellEmpty = 0
	CellX     = 1
	CellO     = 2
)

// Symbol is a player's mark. The empty string means no symbol assigned.
type Symbol string

const (
	SymbolNone Symbol = ""
	SymbolX    Symbol = "X"
	SymbolO    Symbol = "O"
)

// Cell returns the board cell value for the symbol.
func (s Symbol) Cell() int {
	switch s {
	case SymbolX:
		return CellX
	case SymbolO:
		return CellO
	}
	return CellEmpty
}

// Other toggles X and O.
func (s Symbol) Other() Symbol {
	switch s {
	case SymbolX:
		return SymbolO
	case SymbolO:
		return SymbolX
	}
	return SymbolNone
}

func symbolFromCell(cell int) Symbol {
	switch cell {
	case CellX:
		return SymbolX
	case CellO:
		return SymbolO
	}
	return SymbolNone
}

// The 8 winning lines: 3 rows, 3 columns, 2 diagonals.
var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// MoveStatus classifies the result of applying a move.
type MoveStatus int

const (
	MoveInvalidIndex MoveStatus = iota
	MoveCellTaken
	MoveWin
	MoveDraw
	MoveContinue
)

// MoveOutcome is the engine's verdict on a single move.
// Winner is set for MoveWin, NextTurn for MoveContinue.
type MoveOutcome struct {
	Status   MoveStatus
	Winner   Symbol
	NextTurn Symbol
}

// NewBoard returns an empty 9-cell board.
func NewBoard() []int {
	return make([]int, BoardSize)
}

// AssignSymbols randomly returns ("X","O") or ("O","X") with equal
// probability. The first symbol goes to the first player in join order.
func AssignSymbols(r *rand.Rand) (Symbol, Symbol) {
	if r.Intn(2) == 0 {
		return SymbolX, SymbolO
	}
	return SymbolO, SymbolX
}

// ApplyMove writes the symbol at index and evaluates the board.
// The board is mutated only when the move is legal.
func ApplyMove(board []int, symbol Symbol, index int) MoveOutcome {
	if index < 0 || index >= len(board) {
		return MoveOutcome{Status: MoveInvalidIndex}
	}
	if board[index] != CellEmpty {
		return MoveOutcome{Status: MoveCellTaken}
	}

	board[index] = symbol.Cell()

	if CheckWinner(board) == symbol {
		return MoveOutcome{Status: MoveWin, Winner: symbol}
	}
	if IsFull(board) {
		return MoveOutcome{Status: MoveDraw}
	}
	return MoveOutcome{Status: MoveContinue, NextTurn: symbol.Other()}
}

// CheckWinner returns the symbol completing any winning line, or SymbolNone.
func CheckWinner(board []int) Symbol {
	for _, line := range winningLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != CellEmpty && a == b && b == c {
			return symbolFromCell(a)
		}
	}
	return SymbolNone
}

// IsFull reports whether no empty cell remains.
func IsFull(board []int) bool {
	for _, cell := range board {
		if cell == CellEmpty {
			return false
		}
	}
	return true
}
