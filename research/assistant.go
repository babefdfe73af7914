// Package research implements the LLM-backed collaborators of the tool
// server: keyword extraction, research-idea generation, draft review, and
// paper compression. Providers are created through the iris registry.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	iriscore "github.com/petal-labs/iris/core"
	"github.com/petal-labs/iris/providers"
	// Auto-register common providers.
	_ "github.com/petal-labs/iris/providers/anthropic"
	_ "github.com/petal-labs/iris/providers/ollama"
	_ "github.com/petal-labs/iris/providers/openai"

	"github.com/daiduo2/TaShan-SciSpark/arxiv"
)

// chatClient is the slice of the iris provider the assistant needs.
type chatClient interface {
	Chat(ctx context.Context, req *iriscore.ChatRequest) (*iriscore.ChatResponse, error)
}

// Config configures an Assistant.
type Config struct {
	// Provider is the iris provider name (e.g. "openai", "anthropic").
	Provider string
	APIKey   string
	Model    string
	// Searcher supplies papers for idea generation.
	Searcher arxiv.Searcher
	Logger   *slog.Logger
}

// Assistant is the concrete implementation of the research collaborators.
type Assistant struct {
	client   chatClient
	model    string
	searcher arxiv.Searcher
	logger   *slog.Logger
}

// NewAssistant creates an assistant backed by the named iris provider.
func NewAssistant(cfg Config) (*Assistant, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("research: model is required")
	}
	provider, err := providers.Create(cfg.Provider, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("research: creating provider %q: %w", cfg.Provider, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		client:   provider,
		model:    cfg.Model,
		searcher: cfg.Searcher,
		logger:   logger,
	}, nil
}

// chat sends one system+user exchange and returns the trimmed output.
func (a *Assistant) chat(ctx context.Context, system, user string) (string, error) {
	req := &iriscore.ChatRequest{
		Model: iriscore.ModelID(a.model),
		Messages: []iriscore.Message{
			{Role: iriscore.RoleSystem, Content: system},
			{Role: iriscore.RoleUser, Content: user},
		},
	}
	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("research: chat failed: %w", err)
	}
	return strings.TrimSpace(resp.Output), nil
}

// ExtractKeywords pulls technical entities out of the named section of the
// text. An empty extraction is not an error; callers treat it as a falsy
// result.
func (a *Assistant) ExtractKeywords(ctx context.Context, text, section string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if strings.TrimSpace(section) == "" {
		section = "Paper Abstract"
	}

	out, err := a.chat(ctx, extractKeywordsSystem,
		fmt.Sprintf("Section: %s\n\nText:\n%s", section, text))
	if err != nil {
		return nil, err
	}
	return splitKeywords(out), nil
}

// GenerateIdea retrieves up to paperCount papers for the keyword and drafts
// a research idea grounded in their abstracts. This is the long-running
// collaborator invoked off the calling path.
func (a *Assistant) GenerateIdea(ctx context.Context, keyword string, paperCount int) (string, error) {
	if strings.TrimSpace(keyword) == "" {
		return "", errors.New("research: keyword is required")
	}
	if paperCount <= 0 {
		paperCount = 3
	}

	var papers []arxiv.Paper
	if a.searcher != nil {
		found, err := a.searcher.Search(ctx, keyword, paperCount)
		if err != nil {
			return "", fmt.Errorf("research: retrieving papers: %w", err)
		}
		papers = found
	}
	a.logger.Info("drafting research idea", "keyword", keyword, "papers", len(papers))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Research keyword: %s\n", keyword)
	if len(papers) > 0 {
		sb.WriteString("\nRecent related papers:\n")
		for i, p := range papers {
			fmt.Fprintf(&sb, "%d. %s\n%s\n\n", i+1, p.Title, p.Abstract)
		}
	}

	return a.chat(ctx, generateIdeaSystem, sb.String())
}

// Review critiques a research-idea draft against the topic.
func (a *Assistant) Review(ctx context.Context, topic, draft string) (string, error) {
	return a.chat(ctx, reviewSystem,
		fmt.Sprintf("Topic: %s\n\nDraft:\n%s", topic, draft))
}

// Compress condenses a paper to its essential content. When there is
// nothing to compress it returns an empty result without calling the
// provider; callers treat that as falsy.
func (a *Assistant) Compress(ctx context.Context, title, abstract, content string) (string, error) {
	if strings.TrimSpace(abstract) == "" && strings.TrimSpace(content) == "" {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n\nAbstract:\n%s\n", title, abstract)
	if strings.TrimSpace(content) != "" {
		fmt.Fprintf(&sb, "\nBody:\n%s\n", content)
	}

	return a.chat(ctx, compressSystem, sb.String())
}

// splitKeywords parses a comma- or newline-separated keyword list,
// dropping list markers and duplicates.
func splitKeywords(out string) []string {
	fields := strings.FieldsFunc(out, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		kw := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(f), "-*0123456789. "))
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}
	return keywords
}
