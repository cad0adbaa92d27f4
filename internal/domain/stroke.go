package domain

type Tool string

const (
	ToolPencil Tool = "pencil"
	ToolEraser Tool = "eraser"
)

func (t Tool) Valid() bool {
	return t == ToolPencil || t == ToolEraser
}

// Stroke is a single line-segment drawing command. Field names match the
// canvas client's draw payload. Immutable once appended to a room; replay
// order matters because eraser strokes composite over prior ones.
type Stroke struct {
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	Tool      Tool    `json:"tool"`
}
