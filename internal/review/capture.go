package review

type CaptureState string

const (
	CaptureIdle      CaptureState = "idle"
	CaptureReady     CaptureState = "capturing-ready"
	CaptureSuspended CaptureState = "capturing-suspended"
)

// Capture tracks the drawing tool settings and the uncommitted shapes for the
// frame on screen. It is not safe for concurrent use; Workspace guards it.
type Capture struct {
	capturing   bool
	playing     bool
	tool        Tool
	color       string
	strokeWidth float64
	pending     []Shape
	// inFlight counts the leading pending shapes handed to a running save.
	inFlight int
}

func NewCapture() *Capture {
	return &Capture{
		tool:        DefaultTool,
		color:       DefaultColor,
		strokeWidth: DefaultStrokeWidth,
	}
}

func (c *Capture) State() CaptureState {
	switch {
	case !c.capturing:
		return CaptureIdle
	case c.playing:
		return CaptureSuspended
	default:
		return CaptureReady
	}
}

// SetCapturing toggles capture. Turning it off keeps buffered shapes.
func (c *Capture) SetCapturing(on bool) {
	c.capturing = on
}

func (c *Capture) SetPlaying(playing bool) {
	c.playing = playing
}

func (c *Capture) Playing() bool {
	return c.playing
}

func (c *Capture) SetTool(t Tool) error {
	if !validTool(t) {
		return validationError("unknown tool %q", t)
	}
	c.tool = t
	return nil
}

func (c *Capture) SetColor(color string) error {
	if !validColor(color) {
		return validationError("color %q is not in the palette", color)
	}
	c.color = color
	return nil
}

func (c *Capture) SetStrokeWidth(w float64) error {
	if !validStrokeWidth(w) {
		return validationError("stroke width %v is not a preset", w)
	}
	c.strokeWidth = w
	return nil
}

func (c *Capture) Tool() Tool           { return c.tool }
func (c *Capture) Color() string        { return c.color }
func (c *Capture) StrokeWidth() float64 { return c.strokeWidth }

// Append records one completed draw gesture. Missing type, color and width
// are taken from the active settings.
func (c *Capture) Append(s Shape) error {
	switch c.State() {
	case CaptureIdle:
		return ErrCaptureInactive
	case CaptureSuspended:
		return ErrCapturePaused
	}
	if s.Type == "" {
		s.Type = c.tool
	}
	if s.Color == "" {
		s.Color = c.color
	}
	if s.StrokeWidth == 0 {
		s.StrokeWidth = c.strokeWidth
	}
	if err := s.Validate(); err != nil {
		return &Error{Kind: KindValidation, Message: err.Error()}
	}
	c.pending = append(c.pending, s)
	return nil
}

// Undo drops the most recent pending shape and reports whether one existed.
func (c *Capture) Undo() bool {
	if len(c.pending) == 0 {
		return false
	}
	c.pending = c.pending[:len(c.pending)-1]
	c.inFlight = min(c.inFlight, len(c.pending))
	return true
}

func (c *Capture) Clear() {
	c.pending = nil
	c.inFlight = 0
}

// MarkInFlight returns the pending shapes and remembers them as the ones a
// save is about to write. Shapes appended afterwards are not part of it.
func (c *Capture) MarkInFlight() []Shape {
	c.inFlight = len(c.pending)
	return c.Pending()
}

// SettleInFlight ends a save. When committed, the shapes it wrote are dropped
// and anything drawn during the save stays pending.
func (c *Capture) SettleInFlight(committed bool) {
	if committed {
		c.pending = append([]Shape(nil), c.pending[c.inFlight:]...)
	}
	c.inFlight = 0
}

func (c *Capture) Pending() []Shape {
	out := make([]Shape, len(c.pending))
	copy(out, c.pending)
	return out
}

func (c *Capture) PendingCount() int {
	return len(c.pending)
}
