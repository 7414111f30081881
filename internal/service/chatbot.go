package service

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var knowledgeYAML []byte

// FallbackIntent labels messages no keyword matched / Libellé des messages sans correspondance
const FallbackIntent = "fallback"

const (
	maxSuggestions   = 5
	minFuzzyWordLen  = 4
	namesRefreshRate = 5 * time.Minute
)

// ChatbotMetricsRecorder records chatbot metrics / Enregistre les métriques du chatbot
type ChatbotMetricsRecorder interface {
	RecordChatbotIntent(intent string)
}

// ChatReply is the chatbot answer / Réponse du chatbot
type ChatReply struct {
	Reply       string   `json:"reply"`
	Intent      string   `json:"intent"`
	Suggestions []string `json:"suggestions"`
}

type intent struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

type knowledgeBase struct {
	Fallback string   `yaml:"fallback"`
	Intents  []intent `yaml:"intents"`
}

// nameList adapts catalog names to fuzzy.Source / Adapte les noms pour fuzzy.Source
type nameList struct {
	refs       []domain.NamedRef
	normalized []string
}

func (n nameList) String(i int) string { return n.normalized[i] }
func (n nameList) Len() int            { return len(n.normalized) }

// Chatbot answers orientation questions from a keyword table / Répond via une table de mots-clés
type Chatbot struct {
	kb        knowledgeBase
	names     ports.NameIndex
	maxLength int
	metrics   ChatbotMetricsRecorder

	mu       sync.Mutex
	cached   nameList
	loadedAt time.Time
}

// NewChatbot loads the embedded knowledge base / Charge la base de connaissances embarquée
func NewChatbot(names ports.NameIndex, conf *config.Config, metrics ChatbotMetricsRecorder) (*Chatbot, error) {
	kb, err := parseKnowledge(knowledgeYAML)
	if err != nil {
		return nil, err
	}
	maxLength := conf.Chatbot.MaxMessageLength
	if maxLength <= 0 {
		maxLength = 500
	}
	return &Chatbot{kb: kb, names: names, maxLength: maxLength, metrics: metrics}, nil
}

func parseKnowledge(data []byte) (knowledgeBase, error) {
	var kb knowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return kb, fmt.Errorf("parse chatbot knowledge: %w", err)
	}
	if kb.Fallback == "" || len(kb.Intents) == 0 {
		return kb, fmt.Errorf("chatbot knowledge needs a fallback and at least one intent")
	}
	for i := range kb.Intents {
		for j, kw := range kb.Intents[i].Keywords {
			kb.Intents[i].Keywords[j] = normalizeText(kw)
		}
	}
	return kb, nil
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, strips accents and collapses spaces / Minuscules, sans accents, espaces réduits
func normalizeText(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Reply answers one message / Répond à un message
func (c *Chatbot) Reply(ctx context.Context, message string) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation(map[string]string{"message": "required"})
	}
	if utf8.RuneCountInString(message) > c.maxLength {
		return nil, apperr.Validation(map[string]string{"message": fmt.Sprintf("max %d characters", c.maxLength)})
	}

	text := normalizeText(message)
	for _, in := range c.kb.Intents {
		for _, kw := range in.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				c.record(in.Name)
				return &ChatReply{Reply: in.Reply, Intent: in.Name, Suggestions: []string{}}, nil
			}
		}
	}

	c.record(FallbackIntent)
	return &ChatReply{
		Reply:       c.kb.Fallback,
		Intent:      FallbackIntent,
		Suggestions: c.suggest(ctx, text),
	}, nil
}

func (c *Chatbot) record(name string) {
	if c.metrics != nil {
		c.metrics.RecordChatbotIntent(name)
	}
}

// suggest fuzzy-matches message words against catalog names / Rapproche les mots du message des noms du catalogue
func (c *Chatbot) suggest(ctx context.Context, text string) []string {
	suggestions := []string{}
	names := c.loadNames(ctx)
	if names.Len() == 0 {
		return suggestions
	}

	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) < minFuzzyWordLen {
			continue
		}
		for _, m := range fuzzy.FindFrom(word, names) {
			if !compactMatch(m, word) {
				continue
			}
			name := names.refs[m.Index].Name
			if seen[name] {
				continue
			}
			seen[name] = true
			suggestions = append(suggestions, name)
			if len(suggestions) == maxSuggestions {
				return suggestions
			}
		}
	}
	return suggestions
}

// compactMatch drops scattered subsequence hits / Écarte les correspondances trop dispersées
func compactMatch(m fuzzy.Match, word string) bool {
	if len(m.MatchedIndexes) == 0 {
		return false
	}
	span := m.MatchedIndexes[len(m.MatchedIndexes)-1] - m.MatchedIndexes[0] + 1
	return span <= len(word)+2
}

func (c *Chatbot) loadNames(ctx context.Context) nameList {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.names == nil {
		return c.cached
	}
	if !c.loadedAt.IsZero() && time.Since(c.loadedAt) < namesRefreshRate {
		return c.cached
	}

	refs, err := c.names.SearchableNames(ctx)
	if err != nil {
		slog.Warn("chatbot could not load catalog names", "err", err)
		return c.cached
	}
	list := nameList{refs: refs, normalized: make([]string, len(refs))}
	for i, ref := range refs {
		list.normalized[i] = normalizeText(ref.Name)
	}
	c.cached = list
	c.loadedAt = time.Now()
	return list
}
