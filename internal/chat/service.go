// Package chat runs conversations over session state: binding an agent to
// uploaded data or web search, and answering turns with the bound agent
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/ethanbaker/tabletalk/internal/binding"
	"github.com/ethanbaker/tabletalk/internal/metrics"
	"github.com/ethanbaker/tabletalk/internal/stores/session"
	"github.com/ethanbaker/tabletalk/internal/stores/transcript"
	"github.com/ethanbaker/tabletalk/internal/table"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
)

var (
	// ErrInvalidSession is returned for empty or oversized session ids
	ErrInvalidSession = errors.New("invalid session id")

	// ErrInvalidTranscript is returned when a client-held transcript has an
	// unknown role
	ErrInvalidTranscript = errors.New("invalid transcript")

	// ErrTurnTimeout is reported when the agent does not answer in time
	ErrTurnTimeout = errors.New("the request timed out, please try again")
)

// Defaults used when options leave a field unset
const (
	DefaultTurnTimeout    = 60 * time.Second
	DefaultUploadMaxBytes = 10 << 20
)

// Binder creates agent handles for sources
type Binder interface {
	Bind(ctx context.Context, source binding.Source) (agent.Handle, error)

	// ResolveProvider returns the provider an empty name defaults to
	ResolveProvider(provider string) string
}

// Options configures a Service
type Options struct {
	TurnTimeout    time.Duration
	UploadMaxBytes int64
	MaxRows        int
}

// OptionsFromConfig reads TURN_TIMEOUT, UPLOAD_MAX_BYTES and UPLOAD_MAX_ROWS
func OptionsFromConfig(cfg *utils.Config) Options {
	return Options{
		TurnTimeout:    cfg.GetDurationWithDefault("TURN_TIMEOUT", DefaultTurnTimeout),
		UploadMaxBytes: cfg.GetInt64WithDefault("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes),
		MaxRows:        cfg.GetIntWithDefault("UPLOAD_MAX_ROWS", 0),
	}
}

// View is a read-only picture of a session for a rendering surface
type View struct {
	ID           string        `json:"id"`
	Binding      binding.Kind  `json:"binding"`
	Source       string        `json:"source,omitempty"`
	Bound        bool          `json:"bound"`
	Transcript   []agent.Entry `json:"transcript"`
	InputEnabled bool          `json:"input_enabled"`
	Placeholder  string        `json:"placeholder"`
	Version      uint64        `json:"version"`
}

// IngestResult is what the surface shows after an upload or search binding
type IngestResult struct {
	Transcript   []agent.Entry `json:"transcript"`
	InputEnabled bool          `json:"input_enabled"`
	Placeholder  string        `json:"placeholder"`
}

// TurnResult is the transcript after a turn plus the cleared input echo
type TurnResult struct {
	Transcript []agent.Entry `json:"transcript"`
	Input      string        `json:"input"`
}

// Service coordinates ingestion and conversation turns
type Service struct {
	binder  Binder
	store   *session.Store
	archive transcript.Archive
	metrics *metrics.Metrics
	opts    Options
}

// NewService creates a service over store using binder for new agents
func NewService(binder Binder, store *session.Store, opts Options) *Service {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = DefaultUploadMaxBytes
	}

	return &Service{
		binder: binder,
		store:  store,
		opts:   opts,
	}
}

// WithArchive enables transcript archiving. A nil archive disables it
func (s *Service) WithArchive(archive transcript.Archive) *Service {
	s.archive = archive
	return s
}

// WithMetrics enables instrumentation
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Archive returns the transcript archive, nil when archiving is off
func (s *Service) Archive() transcript.Archive {
	return s.archive
}

// Open returns the session view, creating the session if needed
func (s *Service) Open(id string) (View, error) {
	if !session.ValidID(id) {
		return View{}, ErrInvalidSession
	}

	state := s.store.GetOrCreate(id)
	s.metrics.SetSessions(s.store.Len())
	return newView(state), nil
}

// Ingest parses an uploaded file and binds a fresh data agent to it. A
// malformed file is reported in the returned transcript and leaves the
// session untouched. Binding failures are returned as errors
func (s *Service) Ingest(ctx context.Context, id, filename string, r io.Reader) (IngestResult, error) {
	if !session.ValidID(id) {
		return IngestResult{}, ErrInvalidSession
	}

	data, err := io.ReadAll(io.LimitReader(r, s.opts.UploadMaxBytes+1))
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to read upload: %w", err)
	}

	var tbl *table.Table
	if int64(len(data)) > s.opts.UploadMaxBytes {
		err = &table.ParseError{Err: fmt.Errorf("file exceeds the %d byte upload limit", s.opts.UploadMaxBytes)}
	} else {
		tbl, err = table.Parse(filename, bytes.NewReader(data), table.Options{MaxRows: s.opts.MaxRows})
	}

	if errors.Is(err, table.ErrParse) {
		log.Printf("[CHAT]: Session %s rejected upload %q: %v", id, filename, err)
		s.metrics.Ingested(metrics.OutcomeParseError)

		return IngestResult{
			Transcript:   []agent.Entry{agent.AssistantEntry(parseErrorMessage(err))},
			InputEnabled: false,
			Placeholder:  PlaceholderUpload,
		}, nil
	}
	if err != nil {
		return IngestResult{}, err
	}

	seed := agent.AssistantEntry(uploadedMessage(tbl.Name, tbl.NumRows()))
	state, err := s.bind(ctx, id, binding.TableSource{Table: tbl}, seed)
	if err != nil {
		return IngestResult{}, err
	}

	log.Printf("[CHAT]: Session %s bound to %q (%d rows, %d columns)", id, tbl.Name, tbl.NumRows(), tbl.NumColumns())

	return IngestResult{
		Transcript:   state.Transcript,
		InputEnabled: true,
		Placeholder:  PlaceholderData,
	}, nil
}

// BindSearch binds a fresh web search agent to the session. An empty
// provider uses the configured default
func (s *Service) BindSearch(ctx context.Context, id, provider string) (IngestResult, error) {
	if !session.ValidID(id) {
		return IngestResult{}, ErrInvalidSession
	}

	name := s.binder.ResolveProvider(provider)
	seed := agent.AssistantEntry(searchReadyMessage(name))

	state, err := s.bind(ctx, id, binding.SearchSource{Provider: name}, seed)
	if err != nil {
		return IngestResult{}, err
	}

	log.Printf("[CHAT]: Session %s bound to web search via %s", id, name)

	return IngestResult{
		Transcript:   state.Transcript,
		InputEnabled: true,
		Placeholder:  PlaceholderSearch,
	}, nil
}

// bind replaces the session's agent and resets its transcript to seed
func (s *Service) bind(ctx context.Context, id string, source binding.Source, seed agent.Entry) (session.State, error) {
	state, err := s.store.Update(ctx, id, func(st *session.State) error {
		handle, err := s.binder.Bind(ctx, source)
		if err != nil {
			return err
		}

		st.Bind(handle, source.Kind(), source.Name(), seed)
		return nil
	})
	if err != nil {
		log.Printf("[CHAT]: Session %s failed to bind %s source %q: %v", id, source.Kind(), source.Name(), err)
		s.metrics.Ingested(metrics.OutcomeBindFailure)
		return session.State{}, fmt.Errorf("failed to bind %s agent: %w", source.Kind(), err)
	}

	s.metrics.Ingested(metrics.OutcomeBound)
	s.metrics.SetSessions(s.store.Len())
	s.record(ctx, id, source.Name(), seed)

	return state, nil
}

// Turn answers userText with the session's bound agent. A nil prior uses
// the stored transcript. Agent failures and timeouts are reported in the
// transcript; the only errors returned concern the session itself
func (s *Service) Turn(ctx context.Context, id, userText string, prior []agent.Entry) (TurnResult, error) {
	if !session.ValidID(id) {
		return TurnResult{}, ErrInvalidSession
	}
	for i, e := range prior {
		if !agent.ValidRole(e.Role) {
			return TurnResult{}, fmt.Errorf("%w: entry %d has role %q", ErrInvalidTranscript, i, e.Role)
		}
	}

	if strings.TrimSpace(userText) == "" {
		entries := agent.CloneEntries(prior)
		if prior == nil {
			entries = s.store.GetOrCreate(id).Transcript
		}
		s.metrics.TurnCompleted(metrics.OutcomeEmpty, 0)
		return TurnResult{Transcript: entries, Input: ""}, nil
	}

	var (
		added   []agent.Entry
		source  string
		outcome string
		elapsed time.Duration
	)

	state, err := s.store.Update(ctx, id, func(st *session.State) error {
		working := agent.CloneEntries(prior)
		if prior == nil {
			working = st.Transcript
		}

		user := agent.UserEntry(userText)
		history := agent.ToHistory(working)
		working = append(working, user)

		var reply agent.Entry
		if !st.Bound() {
			reply = agent.AssistantEntry(MessageUnbound)
			outcome = metrics.OutcomeUnbound
		} else {
			start := time.Now()
			reply, outcome = s.invoke(ctx, id, st.Agent, userText, history)
			elapsed = time.Since(start)
		}

		st.Transcript = append(working, reply)
		added = []agent.Entry{user, reply}
		source = st.Source
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	s.metrics.TurnCompleted(outcome, elapsed)
	s.record(ctx, id, source, added...)

	return TurnResult{Transcript: state.Transcript, Input: ""}, nil
}

// invoke calls the agent under the turn timeout and turns every outcome
// into an assistant entry
func (s *Service) invoke(ctx context.Context, id string, handle agent.Handle, input string, history []agent.Message) (agent.Entry, string) {
	turnCtx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	output, err := handle.Invoke(turnCtx, input, history)
	if err != nil && ctx.Err() == nil && errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
		err = ErrTurnTimeout
	}

	switch {
	case errors.Is(err, ErrTurnTimeout):
		log.Printf("[CHAT]: Session %s turn timed out after %s", id, s.opts.TurnTimeout)
		return agent.AssistantEntry(MessageTimeout), metrics.OutcomeTimeout
	case err != nil:
		log.Printf("[CHAT]: Session %s turn failed: %v", id, err)
		return agent.AssistantEntry(turnErrorMessage(err)), metrics.OutcomeFailed
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return agent.AssistantEntry(MessageEmptyOutput), metrics.OutcomeFailed
	}
	return agent.AssistantEntry(output), metrics.OutcomeAnswered
}

// Clear removes the session and returns the view of a fresh one
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	if !session.ValidID(id) {
		return View{}, ErrInvalidSession
	}

	if s.store.Clear(id) {
		log.Printf("[CHAT]: Session %s cleared", id)
	}
	s.metrics.SetSessions(s.store.Len())

	return View{
		ID:          id,
		Binding:     binding.KindNone,
		Transcript:  []agent.Entry{},
		Placeholder: PlaceholderUpload,
	}, nil
}

// record archives entries. Archive failures are logged and never fail the
// caller
func (s *Service) record(ctx context.Context, id, source string, entries ...agent.Entry) {
	if s.archive == nil || len(entries) == 0 {
		return
	}

	records := make([]*transcript.Record, len(entries))
	for i, e := range entries {
		records[i] = &transcript.Record{
			SessionID: id,
			Source:    source,
			Role:      string(e.Role),
			Content:   e.Content,
		}
	}

	if err := s.archive.Append(context.WithoutCancel(ctx), records...); err != nil {
		log.Printf("[ARCHIVE]: Failed to archive %d entries for session %s: %v", len(records), id, err)
	}
}

func newView(state session.State) View {
	view := View{
		ID:           state.ID,
		Binding:      state.Binding,
		Source:       state.Source,
		Bound:        state.Bound(),
		Transcript:   state.Transcript,
		InputEnabled: state.Bound(),
		Placeholder:  PlaceholderUpload,
		Version:      state.Version,
	}

	switch {
	case !view.Bound:
	case state.Binding == binding.KindSearch:
		view.Placeholder = PlaceholderSearch
	default:
		view.Placeholder = PlaceholderData
	}

	return view
}
