package api

import "github.com/timada-org/todoboard/internal/todo"

type column struct {
	Key   todo.Column
	Label string
	Items []todo.Item
}

type page struct {
	Title   string
	ListID  string
	Action  string
	Columns []column
}

func newPage(listID, action string, board todo.Board) page {
	columns := make([]column, 0, len(todo.Columns))
	for _, c := range todo.Columns {
		columns = append(columns, column{Key: c, Label: c.Label(), Items: board[c]})
	}

	return page{
		Title:   "Todo board",
		ListID:  listID,
		Action:  action,
		Columns: columns,
	}
}

// row is the data of one item's controls.
type row struct {
	Action string
	Item   todo.Item
}

func newRow(action string, item todo.Item) row {
	return row{Action: action, Item: item}
}
