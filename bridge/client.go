package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-json-experiment/json"
)

// ErrNotConnected is reported for actions attempted while the client has no
// live connection.
var ErrNotConnected = errors.New("bridge: not connected")

// Config is the connection configuration for a room.
type Config struct {
	// URL is the platform's websocket endpoint.
	URL string
	// Token is the bot's API token.
	Token string
	// Room is the room ID to join.
	Room string
	// Timeout is the per-action acknowledgement timeout.
	Timeout time.Duration
	// Retries is the schedule of waits between reconnection attempts.
	// Once exhausted, the client gives up and closes the event channel.
	Retries []time.Duration
}

// Client is a websocket connection to one room. It implements [Actor].
//
// Client automatically reconnects after transport errors, replaying the
// retry schedule from the start for each new outage. Actions issued while
// disconnected fail with [ErrNotConnected].
type Client struct {
	cfg    Config
	roster *Roster
	recv   chan Event

	wmu  sync.Mutex
	conn *websocket.Conn

	rid     atomic.Int64
	pmu     sync.Mutex
	pending map[int64]chan inFrame
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		roster:  NewRoster(),
		recv:    make(chan Event, 8),
		pending: make(map[int64]chan inFrame),
	}
}

// Events returns the channel on which room events are delivered. It is
// closed when Connect returns.
func (cl *Client) Events() <-chan Event {
	return cl.recv
}

// Roster returns the room roster, kept current by the client.
func (cl *Client) Roster() *Roster {
	return cl.roster
}

// Connect dials the room and pumps events until the context is canceled or
// the retry schedule is exhausted. It should be used in a go statement or an
// errgroup.
func (cl *Client) Connect(ctx context.Context) error {
	defer close(cl.recv)
	for ctx.Err() == nil {
		conn, err := cl.dial(ctx)
		if err != nil {
			for _, wait := range cl.cfg.Retries {
				slog.WarnContext(ctx, "dial failed", slog.Any("err", err), slog.Duration("wait", wait))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
				conn, err = cl.dial(ctx)
				if err == nil {
					break
				}
			}
			if err != nil {
				return fmt.Errorf("bridge: out of retries: %w", err)
			}
		}
		cl.setConn(conn)
		err = cl.read(ctx, conn)
		cl.setConn(nil)
		cl.fail(ErrNotConnected)
		if ctx.Err() != nil {
			conn.Close(websocket.StatusNormalClosure, "goodbye")
			return ctx.Err()
		}
		slog.WarnContext(ctx, "connection lost", slog.Any("err", err))
		select {
		case cl.recv <- Event{Kind: TransportError, Err: err}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func (cl *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	hd := http.Header{}
	hd.Set("Authorization", "Bearer "+cl.cfg.Token)
	hd.Set("Room-Id", cl.cfg.Room)
	conn, _, err := websocket.Dial(ctx, cl.cfg.URL, &websocket.DialOptions{HTTPHeader: hd})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

func (cl *Client) setConn(conn *websocket.Conn) {
	cl.wmu.Lock()
	cl.conn = conn
	cl.wmu.Unlock()
}

// read decodes frames until the connection drops. Responses resolve pending
// actions; everything else becomes an event.
func (cl *Client) read(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var f inFrame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.WarnContext(ctx, "malformed frame", slog.Any("err", err))
			continue
		}
		if f.RID != 0 {
			cl.resolve(f)
			continue
		}
		ev, ok := cl.translate(f)
		if !ok {
			continue
		}
		select {
		case cl.recv <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// translate converts a wire frame into an Event and applies roster upkeep.
// The session snapshot only updates the roster; it produces no event.
func (cl *Client) translate(f inFrame) (Event, bool) {
	u := f.User.user()
	switch f.Ev {
	case "session":
		us := make([]User, len(f.Users))
		for i, w := range f.Users {
			us[i] = w.user()
		}
		cl.roster.Reset(us)
		return Event{}, false
	case "ready":
		return Event{Kind: Ready, User: u}, true
	case "join":
		cl.roster.Put(u)
		return Event{Kind: Join, User: u}, true
	case "leave":
		cl.roster.Remove(u.ID)
		return Event{Kind: Leave, User: u}, true
	case "chat":
		return Event{Kind: Chat, Channel: Public, User: u, Text: f.Text}, true
	case "dm":
		return Event{Kind: Chat, Channel: DM, User: u, Text: f.Text}, true
	case "whisper":
		return Event{Kind: Chat, Channel: Whisper, User: u, Text: f.Text}, true
	case "move":
		return Event{Kind: Move, User: u, Pose: f.Pose.pose()}, true
	case "emote":
		return Event{Kind: Emote, User: u, Emote: f.Emote}, true
	case "reaction":
		return Event{Kind: Reaction, User: u, Emote: f.Emote}, true
	case "tip":
		return Event{Kind: Tip, User: u, Amount: f.Amount}, true
	case "voice":
		return Event{Kind: Voice, User: u}, true
	case "moderation":
		return Event{Kind: Moderation, User: u, Text: f.Text}, true
	default:
		return Event{}, false
	}
}

func (cl *Client) resolve(f inFrame) {
	cl.pmu.Lock()
	ch, ok := cl.pending[f.RID]
	delete(cl.pending, f.RID)
	cl.pmu.Unlock()
	if ok {
		ch <- f
	}
}

// fail rejects every pending action, typically because the connection
// carrying them is gone.
func (cl *Client) fail(err error) {
	cl.pmu.Lock()
	defer cl.pmu.Unlock()
	for rid, ch := range cl.pending {
		ch <- inFrame{RID: rid, Error: err.Error()}
		delete(cl.pending, rid)
	}
}

// request sends a frame and waits for its acknowledgement.
func (cl *Client) request(ctx context.Context, f frame) (inFrame, error) {
	f.RID = cl.rid.Add(1)
	ch := make(chan inFrame, 1)
	cl.pmu.Lock()
	cl.pending[f.RID] = ch
	cl.pmu.Unlock()
	if err := cl.write(ctx, f); err != nil {
		cl.pmu.Lock()
		delete(cl.pending, f.RID)
		cl.pmu.Unlock()
		return inFrame{}, err
	}
	t := time.NewTimer(cl.cfg.Timeout)
	defer t.Stop()
	select {
	case r := <-ch:
		if r.Error != "" {
			return r, fmt.Errorf("bridge: %s rejected: %s", f.Op, r.Error)
		}
		return r, nil
	case <-t.C:
		cl.pmu.Lock()
		delete(cl.pending, f.RID)
		cl.pmu.Unlock()
		return inFrame{}, fmt.Errorf("bridge: %s timed out", f.Op)
	case <-ctx.Done():
		cl.pmu.Lock()
		delete(cl.pending, f.RID)
		cl.pmu.Unlock()
		return inFrame{}, ctx.Err()
	}
}

func (cl *Client) write(ctx context.Context, f frame) error {
	b, err := json.Marshal(&f)
	if err != nil {
		return err
	}
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	if cl.conn == nil {
		return ErrNotConnected
	}
	return cl.conn.Write(ctx, websocket.MessageText, b)
}

// Actor implementation.

func (cl *Client) SendChat(ctx context.Context, text string) error {
	_, err := cl.request(ctx, frame{Op: "chat", Text: text})
	return err
}

func (cl *Client) SendDM(ctx context.Context, userID, text string) error {
	_, err := cl.request(ctx, frame{Op: "dm", User: userID, Text: text})
	return err
}

func (cl *Client) SendWhisper(ctx context.Context, userID, text string) error {
	_, err := cl.request(ctx, frame{Op: "whisper", User: userID, Text: text})
	return err
}

func (cl *Client) Teleport(ctx context.Context, userID string, to Pose) error {
	p := wirepose(to)
	_, err := cl.request(ctx, frame{Op: "teleport", User: userID, Pose: &p})
	return err
}

func (cl *Client) Walk(ctx context.Context, to Pose) error {
	p := wirepose(to)
	_, err := cl.request(ctx, frame{Op: "walk", Pose: &p})
	return err
}

func (cl *Client) PlayEmote(ctx context.Context, userID, emoteID string) error {
	_, err := cl.request(ctx, frame{Op: "emote", User: userID, Emote: emoteID})
	return err
}

func (cl *Client) Kick(ctx context.Context, userID string) error {
	_, err := cl.request(ctx, frame{Op: "kick", User: userID})
	return err
}

func (cl *Client) Ban(ctx context.Context, userID string, d time.Duration) error {
	_, err := cl.request(ctx, frame{Op: "ban", User: userID, Seconds: int64(d.Seconds())})
	return err
}

func (cl *Client) Mute(ctx context.Context, userID string, d time.Duration) error {
	_, err := cl.request(ctx, frame{Op: "mute", User: userID, Seconds: int64(d.Seconds())})
	return err
}

func (cl *Client) Outfit(ctx context.Context, userID string) ([]OutfitItem, error) {
	r, err := cl.request(ctx, frame{Op: "outfit", User: userID})
	if err != nil {
		return nil, err
	}
	return r.Items, nil
}

func (cl *Client) SetOutfit(ctx context.Context, items []OutfitItem) error {
	_, err := cl.request(ctx, frame{Op: "setoutfit", Items: items})
	return err
}

func (cl *Client) ColorOutfit(ctx context.Context, part string, index int) error {
	_, err := cl.request(ctx, frame{Op: "coloroutfit", Part: part, Index: index})
	return err
}

func (cl *Client) BuyItem(ctx context.Context, kind string, amount int) error {
	_, err := cl.request(ctx, frame{Op: "buy", Kind: kind, Amount: amount})
	return err
}

func (cl *Client) Position(ctx context.Context, userID string) (Pose, error) {
	r, err := cl.request(ctx, frame{Op: "position", User: userID})
	if err != nil {
		return Pose{}, err
	}
	return r.Pose.pose(), nil
}

var _ Actor = (*Client)(nil)

// frame is an outgoing wire frame. Fields beyond Op and RID are populated
// per operation.
type frame struct {
	Op      string       `json:"op"`
	RID     int64        `json:"rid,omitzero"`
	User    string       `json:"user,omitzero"`
	Text    string       `json:"text,omitzero"`
	Pose    *wirePose    `json:"pose,omitzero"`
	Emote   string       `json:"emote,omitzero"`
	Seconds int64        `json:"seconds,omitzero"`
	Items   []OutfitItem `json:"items,omitzero"`
	Part    string       `json:"part,omitzero"`
	Index   int          `json:"index,omitzero"`
	Kind    string       `json:"kind,omitzero"`
	Amount  int          `json:"amount,omitzero"`
}

// inFrame is an incoming wire frame, either an event (Ev set) or an action
// acknowledgement (RID set).
type inFrame struct {
	RID    int64        `json:"rid,omitzero"`
	Ev     string       `json:"ev,omitzero"`
	Error  string       `json:"error,omitzero"`
	User   *wireUser    `json:"user,omitzero"`
	Users  []wireUser   `json:"users,omitzero"`
	Text   string       `json:"text,omitzero"`
	Pose   *wirePose    `json:"pose,omitzero"`
	Emote  string       `json:"emote,omitzero"`
	Amount int          `json:"amount,omitzero"`
	Items  []OutfitItem `json:"items,omitzero"`
}

type wireUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (w *wireUser) user() User {
	if w == nil {
		return User{}
	}
	return User{ID: w.ID, Name: w.Name}
}

type wirePose struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Facing float64 `json:"facing"`
}

func (w *wirePose) pose() Pose {
	if w == nil {
		return Pose{}
	}
	return Pose{X: w.X, Y: w.Y, Z: w.Z, Facing: w.Facing}
}

func wirepose(p Pose) wirePose {
	return wirePose{X: p.X, Y: p.Y, Z: p.Z, Facing: p.Facing}
}
