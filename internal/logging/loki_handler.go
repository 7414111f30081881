package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const lokiFlushInterval = 5 * time.Second

// LokiHandler is a slog.Handler that batches records and pushes them to Loki / Envoie les logs à Loki par lots
type LokiHandler struct {
	sink   *lokiSink
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// lokiSink is shared by every handler derived with WithAttrs or WithGroup / Partagé par les handlers dérivés
type lokiSink struct {
	url       string
	labels    map[string]string
	client    *http.Client
	batchSize int

	mu     sync.Mutex
	batch  []lokiEntry
	timer  *time.Timer
	closed bool
}

type lokiEntry struct {
	timestamp time.Time
	line      string
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewLokiHandler creates a handler pushing to baseURL; batchSize 0 sends every record / Crée un handler Loki
func NewLokiHandler(baseURL string, labels map[string]string, batchSize int, level slog.Leveler) *LokiHandler {
	if labels == nil {
		labels = map[string]string{}
	}
	if level == nil {
		level = slog.LevelInfo
	}
	sink := &lokiSink{
		url:       strings.TrimSuffix(baseURL, "/") + "/loki/api/v1/push",
		labels:    labels,
		client:    &http.Client{Timeout: 5 * time.Second},
		batchSize: batchSize,
	}
	if batchSize > 0 {
		sink.timer = time.AfterFunc(lokiFlushInterval, sink.periodicFlush)
	}
	return &LokiHandler{sink: sink, level: level}
}

// Enabled reports whether the level is handled / Indique si le niveau est traité
func (h *LokiHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle encodes the record as one JSON line / Encode l'enregistrement en une ligne JSON
func (h *LokiHandler) Handle(_ context.Context, r slog.Record) error {
	line := map[string]any{
		"time":  r.Time.Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		addAttr(line, "", a)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		addAttr(line, prefix, a)
		return true
	})

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal loki line: %w", err)
	}
	return h.sink.add(lokiEntry{timestamp: r.Time, line: string(data)})
}

// addAttr flattens groups into dotted keys / Aplatit les groupes en clés pointées
func addAttr(dst map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, key, ga)
		}
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		dst[key] = v.Error()
	case time.Duration:
		dst[key] = v.String()
	default:
		dst[key] = v
	}
}

// WithAttrs returns a handler carrying attrs under the current groups / Retourne un handler avec ces attributs
func (h *LokiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		for i := len(h.groups) - 1; i >= 0; i-- {
			a = slog.Group(h.groups[i], a)
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup nests following attrs under name / Imbrique les attributs suivants sous name
func (h *LokiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// Close flushes pending lines and stops the timer / Vide le lot et arrête le minuteur
func (h *LokiHandler) Close() error {
	return h.sink.close()
}

func (s *lokiSink) add(e lokiEntry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.batch = append(s.batch, e)
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()

	if full {
		return s.flush()
	}
	return nil
}

func (s *lokiSink) periodicFlush() {
	_ = s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.timer.Reset(lokiFlushInterval)
	}
}

func (s *lokiSink) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.flush()
}

func (s *lokiSink) flush() error {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	entries := s.batch
	s.batch = nil
	s.mu.Unlock()

	values := make([][]string, len(entries))
	for i, e := range entries {
		values[i] = []string{strconv.FormatInt(e.timestamp.UnixNano(), 10), e.line}
	}
	return s.push(lokiPushRequest{Streams: []lokiStream{{Stream: s.labels, Values: values}}})
}

// push never fails the caller; delivery problems go to stderr / N'échoue jamais, erreurs sur stderr
func (s *lokiSink) push(req lokiPushRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal loki push: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build loki request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loki push failed: %v\n", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fmt.Fprintf(os.Stderr, "loki returned %d: %s\n", resp.StatusCode, msg)
	}
	return nil
}
