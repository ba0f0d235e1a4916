// Package mockapi is an in-process stand-in for the conversion backend. It
// serves the REST endpoints plus a scripted SSE stream, which is enough to
// demo the client end to end and to drive integration tests without a real
// model behind it.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/morahq/mora/internal/events"
	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/timeline"
)

// ScriptEvent is one SSE frame the mock will emit: the event name plus a
// JSON-encodable payload.
type ScriptEvent struct {
	Name    events.Type
	Payload any
	Delay   time.Duration
}

// Server is the mock backend. Sessions created against it all replay the
// same script.
type Server struct {
	script []ScriptEvent
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]sessionRecord
}

type sessionRecord struct {
	VideoURL string
	Language string
	Created  time.Time
}

// New builds a mock server that replays script on every stream request.
// A nil script gets the default demo conversion.
func New(script []ScriptEvent) *Server {
	if script == nil {
		script = DemoScript()
	}
	return &Server{
		script:   script,
		logger:   log.WithComponent("mockapi"),
		sessions: make(map[string]sessionRecord),
	}
}

// Handler returns the chi router serving the backend API surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/session", s.handleCreate)
	r.Get("/api/session/{sessionID}", s.handleGet)
	r.Get("/api/session/{sessionID}/stream", s.handleStream)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoURL string `json:"videoUrl"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoURL == "" {
		writeError(w, http.StatusBadRequest, "videoUrl is required")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = sessionRecord{VideoURL: req.VideoURL, Language: req.Language, Created: time.Now()}
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldSessionID, id).
		Str(log.FieldVideoURL, req.VideoURL).
		Str(log.FieldEvent, "mock.session.created").
		Msg("session created")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"sessionId": id,
		"videoUrl":  req.VideoURL,
		"status":    "created",
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	rec, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"sessionId": id,
		"videoUrl":  rec.VideoURL,
		"status":    "processing",
		"createdAt": rec.Created.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	_, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": stream open\n\n")
	flusher.Flush()

	for _, ev := range s.script {
		if ev.Delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(ev.Delay):
			}
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			s.logger.Error().Err(err).Str(log.FieldEventType, string(ev.Name)).Msg("unencodable script payload")
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
		flusher.Flush()
		if ev.Name == events.TypeDone || ev.Name == events.TypeError {
			return
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// DemoScript is a compressed but representative conversion run: thoughts,
// incremental segments, the authoritative batch, and a final timeline.
func DemoScript() []ScriptEvent {
	seg := func(i int, start, end float64, summary, code string) timeline.Segment {
		return timeline.Segment{
			Index:     i,
			StartTime: start,
			EndTime:   end,
			Summary:   summary,
			Code:      code,
		}
	}
	return []ScriptEvent{
		{Name: events.TypeThought, Payload: map[string]string{"content": "Analyzing video frames"}},
		{Name: events.TypeThought, Payload: map[string]string{"content": "Extracting subtitles"}},
		{Name: events.TypeSubtitle, Payload: map[string]string{"content": "import pandas as pd"}},
		{Name: events.TypeThought, Payload: map[string]string{"content": "Generating code"}},
		{Name: events.TypeCodeSegment, Payload: seg(0, 0, 12.5, "Load the dataset", "import pandas as pd\ndf = pd.read_csv('data.csv')")},
		{Name: events.TypeCodeSegment, Payload: seg(1, 12.5, 30, "Clean missing values", "df = df.dropna()")},
		{Name: events.TypeSegmentsComplete, Payload: map[string]any{
			"segments": []timeline.Segment{
				seg(0, 0, 12.5, "Load the dataset", "import pandas as pd\ndf = pd.read_csv('data.csv')"),
				seg(1, 12.5, 30, "Clean missing values", "df = df.dropna()"),
				seg(2, 30, 45, "Plot the distribution", "df['value'].hist()"),
			},
		}},
		{Name: events.TypeCodeDone, Payload: map[string]string{"content": "code generation finished"}},
		{Name: events.TypeDone, Payload: map[string]string{}},
	}
}
