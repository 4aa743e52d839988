package todo

// Column is one of the fixed workflow stages an item can occupy.
type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in progress"
	ColumnInReview   Column = "in review"
)

// Columns lists every column in display order.
var Columns = []Column{ColumnTodo, ColumnInProgress, ColumnInReview}

var columnLabels = map[Column]string{
	ColumnTodo:       "To Do",
	ColumnInProgress: "In Progress",
	ColumnInReview:   "In Review",
}

// ParseColumn returns ErrInvalidColumn for anything outside Columns.
func ParseColumn(value string) (Column, error) {
	c := Column(value)
	if !c.Valid() {
		return "", ErrInvalidColumn
	}
	return c, nil
}

func (c Column) Valid() bool {
	_, ok := columnLabels[c]
	return ok
}

// Label is the human readable column title.
func (c Column) Label() string {
	return columnLabels[c]
}

type Item struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Column    Column `json:"column"`
}

// Board is a list grouped by column. Every column has an entry.
type Board map[Column][]Item

func groupByColumn(items []Item) Board {
	board := make(Board, len(Columns))
	for _, c := range Columns {
		board[c] = []Item{}
	}

	for _, item := range items {
		c := item.Column
		if !c.Valid() {
			c = ColumnTodo
		}
		board[c] = append(board[c], item)
	}

	return board
}
