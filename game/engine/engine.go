package engine

import "fmt"

// Engine provides the main interface for board operations
type Engine interface {
	// State management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *BoardEvent
	GetConfig() *BoardConfig

	// Drag gesture
	PickUp(size int, squareID string) (*DragSession, error)
	PointerMove(px, py float64) (*Preview, error)
	Drop(px, py float64) (*DropResult, error)
	CancelDrag() bool

	// Direct commands
	Place(size, x, y int) (PlacedSquare, error)
	Move(id string, x, y int) (PlacedSquare, error)
	Remove(id string) (PlacedSquare, error)
	ToggleLock(id string) (PlacedSquare, error)

	// Reducer entry point
	Dispatch(action Action) (*Outcome, error)

	// Observability
	GetEvents() []BoardEvent
	GetLastEvent() *BoardEvent
}

// GameEngine implements the Engine interface for a single board
type GameEngine struct {
	config      *BoardConfig
	board       *Board
	drag        DragSession
	message     string
	events      []BoardEvent
	totalEvents int
}

// NewEngine creates a new engine with an empty board for the configuration
func NewEngine(config *BoardConfig) (*GameEngine, error) {
	if err := ValidateBoardConfig(config); err != nil {
		return nil, err
	}

	cfg := *config
	setDefaultMessages(&cfg)

	return &GameEngine{
		config:  &cfg,
		board:   NewBoard(cfg.Geometry(), cfg.SquareSizes),
		drag:    DragSession{State: DragIdle},
		message: cfg.Messages.Welcome,
		events:  []BoardEvent{},
	}, nil
}

// NewEngineWithDefaults creates an engine for the reference 45x45 board
func NewEngineWithDefaults() *GameEngine {
	engine, err := NewEngine(DefaultBoardConfig())
	if err != nil {
		panic(fmt.Sprintf("default board config is invalid: %v", err))
	}
	return engine
}

// SetIDGenerator replaces the square identifier scheme
func (e *GameEngine) SetIDGenerator(gen IDGenerator) {
	e.board.SetIDGenerator(gen)
}

// Board returns the underlying board
func (e *GameEngine) Board() *Board {
	return e.board
}

// GetConfig returns the board configuration
func (e *GameEngine) GetConfig() *BoardConfig {
	return e.config
}

// GetState returns a snapshot of the board
func (e *GameEngine) GetState() *GameState {
	state := &GameState{
		ConfigName:   e.config.Name,
		GridSize:     e.config.GridSize,
		CellSize:     e.config.CellSize,
		SquareSizes:  e.config.SquareSizes,
		Squares:      e.board.Squares(),
		Counts:       e.board.Inventory().Counts(),
		CoveredCells: e.board.CoveredCells(),
		TotalCells:   e.config.GridSize * e.config.GridSize,
		Complete:     e.board.Complete(),
		Message:      e.message,
		Events:       append([]BoardEvent{}, e.events...),
		TotalEvents:  e.totalEvents,
	}
	if e.drag.Active() {
		drag := e.drag
		if drag.Preview != nil {
			preview := *drag.Preview
			drag.Preview = &preview
			state.Preview = &preview
		}
		state.Drag = &drag
	}
	return state
}

// SetState restores a snapshot. The snapshot must satisfy every board
// invariant or it is rejected and the engine is left unchanged.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.GridSize != 0 && state.GridSize != e.config.GridSize {
		return fmt.Errorf("state grid size %d does not match config grid size %d", state.GridSize, e.config.GridSize)
	}

	board := NewBoard(e.config.Geometry(), e.config.SquareSizes)
	board.newID = e.board.newID
	if err := board.Restore(state.Squares, state.Counts); err != nil {
		return fmt.Errorf("invalid state: %w", err)
	}

	drag := DragSession{State: DragIdle}
	if state.Drag.Active() {
		drag = *state.Drag
		drag.State = DragDragging
		if drag.Preview != nil {
			preview := *drag.Preview
			drag.Preview = &preview
		}
		if drag.Source == SourceBoard {
			sq, ok := board.Find(drag.SquareID)
			if !ok || sq.Locked || sq.Size != drag.Size {
				return fmt.Errorf("invalid state: drag references unusable square %s", drag.SquareID)
			}
		} else if drag.Size < MinSquareSize || drag.Size > e.config.SquareSizes {
			return fmt.Errorf("invalid state: drag size %d: %w", drag.Size, ErrInvalidSize)
		}
	}

	e.board = board
	e.drag = drag
	e.message = state.Message
	e.events = append([]BoardEvent{}, state.Events...)
	e.totalEvents = state.TotalEvents
	if e.totalEvents < len(e.events) {
		e.totalEvents = len(e.events)
	}
	return nil
}

// PickUp starts a drag from the toolbar (empty squareID) or from the board
func (e *GameEngine) PickUp(size int, squareID string) (*DragSession, error) {
	session, err := e.gesture().pickUp(size, squareID)
	if err != nil {
		e.reject(err)
		return nil, err
	}
	copied := *session
	return &copied, nil
}

// PointerMove updates the live preview for the active drag
func (e *GameEngine) PointerMove(px, py float64) (*Preview, error) {
	preview, err := e.gesture().pointerMove(px, py)
	if err != nil {
		return nil, err
	}
	copied := *preview
	return &copied, nil
}

// Drop commits the active drag at the pointer position
func (e *GameEngine) Drop(px, py float64) (*DropResult, error) {
	result, err := e.gesture().drop(px, py)
	if err != nil {
		e.reject(err)
		return nil, err
	}
	if result.Repositioned {
		e.record(EventRepositioned, result.Square)
		e.message = fmt.Sprintf(e.config.Messages.Moved, result.Square.Size, result.Square.Size)
	} else {
		e.placed(result.Square)
	}
	return result, nil
}

// CancelDrag abandons the active drag without touching the board
func (e *GameEngine) CancelDrag() bool {
	return e.gesture().cancel()
}

// Place puts a new square at grid coordinates
func (e *GameEngine) Place(size, x, y int) (PlacedSquare, error) {
	sq, err := e.board.Place(size, x, y)
	if err != nil {
		e.reject(err)
		return PlacedSquare{}, err
	}
	e.placed(sq)
	return sq, nil
}

// Move repositions a square to grid coordinates
func (e *GameEngine) Move(id string, x, y int) (PlacedSquare, error) {
	sq, err := e.board.Move(id, x, y)
	if err != nil {
		e.reject(err)
		return PlacedSquare{}, err
	}
	e.record(EventRepositioned, sq)
	e.message = fmt.Sprintf(e.config.Messages.Moved, sq.Size, sq.Size)
	return sq, nil
}

// Remove takes a square off the board
func (e *GameEngine) Remove(id string) (PlacedSquare, error) {
	sq, err := e.board.Remove(id)
	if err != nil {
		e.reject(err)
		return PlacedSquare{}, err
	}
	e.record(EventRemoved, sq)
	e.message = fmt.Sprintf(e.config.Messages.Removed, sq.Size, sq.Size)
	return sq, nil
}

// ToggleLock flips the lock on a square
func (e *GameEngine) ToggleLock(id string) (PlacedSquare, error) {
	sq, err := e.board.ToggleLock(id)
	if err != nil {
		e.reject(err)
		return PlacedSquare{}, err
	}
	if sq.Locked {
		e.record(EventLocked, sq)
	} else {
		e.record(EventUnlocked, sq)
	}
	return sq, nil
}

// Reset clears the board, refills the inventory and discards any drag
func (e *GameEngine) Reset() *BoardEvent {
	cleared := e.board.Reset()
	e.drag = DragSession{State: DragIdle}
	e.message = e.config.Messages.Welcome
	ev := e.appendEvent(BoardEvent{Type: EventReset, SquaresCleared: cleared})
	return &ev
}

// GetEvents returns the board event log
func (e *GameEngine) GetEvents() []BoardEvent {
	return append([]BoardEvent{}, e.events...)
}

// GetLastEvent returns the most recent event, or nil if none
func (e *GameEngine) GetLastEvent() *BoardEvent {
	if len(e.events) == 0 {
		return nil
	}
	ev := e.events[len(e.events)-1]
	return &ev
}

func (e *GameEngine) gesture() *gesture {
	return &gesture{board: e.board, session: &e.drag}
}

func (e *GameEngine) placed(sq PlacedSquare) {
	e.record(EventPlaced, sq)
	if e.board.Complete() {
		e.message = fmt.Sprintf(e.config.Messages.Complete, e.board.Len())
		return
	}
	e.message = fmt.Sprintf(e.config.Messages.Placed, sq.Size, sq.Size)
}

func (e *GameEngine) reject(err error) {
	e.message = fmt.Sprintf(e.config.Messages.Rejected, err.Error())
}

func (e *GameEngine) record(kind EventType, sq PlacedSquare) {
	count, _ := e.board.Inventory().Count(sq.Size)
	e.appendEvent(BoardEvent{
		Type:        kind,
		SquareID:    sq.ID,
		Size:        sq.Size,
		X:           sq.X,
		Y:           sq.Y,
		SquareCount: count,
	})
}

func (e *GameEngine) appendEvent(ev BoardEvent) BoardEvent {
	e.totalEvents++
	ev.Sequence = e.totalEvents
	ev.TotalSquares = e.board.Len()
	ev.Timestamp = now()
	e.events = append(e.events, ev)
	if len(e.events) > MaxEventLog {
		e.events = append([]BoardEvent{}, e.events[len(e.events)-MaxEventLog:]...)
	}
	return ev
}
