package tool

import (
	"context"
	"fmt"

	"github.com/daiduo2/TaShan-SciSpark/arxiv"
	"github.com/daiduo2/TaShan-SciSpark/task"
)

// Collaborator call contracts consumed by the built-in tools. The concrete
// implementations live in the arxiv and research packages; tests stub them.
type (
	// KeywordExtractor pulls technical keywords out of a text section.
	KeywordExtractor interface {
		ExtractKeywords(ctx context.Context, text, section string) ([]string, error)
	}
	// IdeaGenerator drafts a research idea from retrieved papers. It is
	// invoked off the calling path as a background unit.
	IdeaGenerator interface {
		GenerateIdea(ctx context.Context, keyword string, paperCount int) (string, error)
	}
	// Reviewer reviews a research-idea draft.
	Reviewer interface {
		Review(ctx context.Context, topic, draft string) (string, error)
	}
	// Compressor condenses a paper down to its essentials. An empty result
	// means the content could not be compressed.
	Compressor interface {
		Compress(ctx context.Context, title, abstract, content string) (string, error)
	}
)

// ServerInfo is the static descriptor returned by get_server_info.
type ServerInfo struct {
	Name        string
	Version     string
	Description string
}

// BuiltinsConfig wires collaborators into the built-in tool set.
type BuiltinsConfig struct {
	Searcher   arxiv.Searcher
	Extractor  KeywordExtractor
	Ideator    IdeaGenerator
	Reviewer   Reviewer
	Compressor Compressor
	Tasks      *task.Manager
	Info       ServerInfo
}

// RegisterBuiltins registers the research-assistant tool set on the
// registry. Tool payload shapes are part of the external contract:
// {success, message} plus the tool's data field, kept stable on failure.
func RegisterBuiltins(r *Registry, cfg BuiltinsConfig) {
	r.Register(searchPapersTool(cfg.Searcher))
	r.Register(extractKeywordsTool(cfg.Extractor))
	r.Register(generateIdeaTool(cfg.Ideator))
	r.Register(taskStatusTool(cfg.Tasks))
	r.Register(reviewIdeaTool(cfg.Reviewer))
	r.Register(compressPaperTool(cfg.Compressor))
	r.Register(serverInfoTool(r, cfg.Info))
}

func searchPapersTool(searcher arxiv.Searcher) Definition {
	return Definition{
		Name:        "search_papers",
		Description: "Search academic papers by keyword",
		Mode:        ModeSync,
		Params: []Param{
			{Name: "keyword", Type: "string", Required: true},
			{Name: "limit", Type: "int", Default: 5},
		},
		Failure: map[string]any{"papers": []any{}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			keyword, err := stringArg(args, "keyword")
			if err != nil {
				return nil, err
			}
			limit, err := intArgDefault(args, "limit", 5)
			if err != nil {
				return nil, err
			}

			papers, err := searcher.Search(ctx, keyword, limit)
			if err != nil {
				return nil, collaboratorFailure(fmt.Sprintf("paper search failed: %v", err), err)
			}
			if len(papers) == 0 {
				return map[string]any{
					"success": false,
					"message": "no matching papers found",
					"papers":  []any{},
				}, nil
			}

			formatted := make([]map[string]any, 0, len(papers))
			for _, p := range papers {
				formatted = append(formatted, map[string]any{
					"title":     p.Title,
					"authors":   p.Authors,
					"abstract":  p.Abstract,
					"published": p.Published,
					"url":       p.URL,
					"pdf_url":   p.PDFURL,
				})
			}
			return map[string]any{
				"success": true,
				"message": fmt.Sprintf("found %d papers", len(formatted)),
				"papers":  formatted,
			}, nil
		},
	}
}

func extractKeywordsTool(extractor KeywordExtractor) Definition {
	return Definition{
		Name:        "extract_keywords",
		Description: "Extract technical keywords from text",
		Mode:        ModeSync,
		Params: []Param{
			{Name: "text", Type: "string", Required: true},
			{Name: "split_section", Type: "string", Default: "Paper Abstract"},
		},
		Failure: map[string]any{"keywords": []any{}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			text, err := stringArg(args, "text")
			if err != nil {
				return nil, err
			}
			section, err := stringArgDefault(args, "split_section", "Paper Abstract")
			if err != nil {
				return nil, err
			}

			keywords, err := extractor.ExtractKeywords(ctx, text, section)
			if err != nil {
				return nil, collaboratorFailure(fmt.Sprintf("keyword extraction failed: %v", err), err)
			}
			if len(keywords) == 0 {
				return map[string]any{
					"success":  false,
					"message":  "no keywords extracted",
					"keywords": []any{},
				}, nil
			}
			return map[string]any{
				"success":  true,
				"message":  fmt.Sprintf("extracted %d keywords", len(keywords)),
				"keywords": keywords,
			}, nil
		},
	}
}

func generateIdeaTool(ideator IdeaGenerator) Definition {
	return Definition{
		Name:        "generate_research_idea",
		Description: "Generate a research idea from recent papers (async)",
		Mode:        ModeAsync,
		Params: []Param{
			{Name: "keyword", Type: "string", Required: true},
			{Name: "paper_count", Type: "int", Default: 3},
		},
		Failure: map[string]any{"task_id": nil},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			keyword, err := stringArg(args, "keyword")
			if err != nil {
				return nil, err
			}
			paperCount, err := intArgDefault(args, "paper_count", 3)
			if err != nil {
				return nil, err
			}

			idea, err := ideator.GenerateIdea(ctx, keyword, paperCount)
			if err != nil {
				return nil, collaboratorFailure(fmt.Sprintf("idea generation failed: %v", err), err)
			}
			return idea, nil
		},
	}
}

func taskStatusTool(tasks *task.Manager) Definition {
	return Definition{
		Name:        "get_task_status",
		Description: "Poll the status of an asynchronous task",
		Mode:        ModeSync,
		Params: []Param{
			{Name: "task_id", Type: "string", Required: true},
		},
		Failure: map[string]any{"task": nil},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			id, err := stringArg(args, "task_id")
			if err != nil {
				return nil, err
			}

			t, ok := tasks.Get(id)
			if !ok {
				return map[string]any{
					"success": false,
					"message": fmt.Sprintf("task not found: %s", id),
					"task":    nil,
				}, nil
			}
			return map[string]any{
				"success": true,
				"message": "task status retrieved",
				"task":    t.StatusPayload(),
			}, nil
		},
	}
}

func reviewIdeaTool(reviewer Reviewer) Definition {
	return Definition{
		Name:        "review_research_idea",
		Description: "Review a research idea draft",
		Mode:        ModeSync,
		Params: []Param{
			{Name: "topic", Type: "string", Required: true},
			{Name: "draft", Type: "string", Required: true},
		},
		Failure: map[string]any{"review": nil},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			topic, err := stringArg(args, "topic")
			if err != nil {
				return nil, err
			}
			draft, err := stringArg(args, "draft")
			if err != nil {
				return nil, err
			}

			review, err := reviewer.Review(ctx, topic, draft)
			if err != nil {
				return nil, collaboratorFailure(fmt.Sprintf("review failed: %v", err), err)
			}
			if review == "" {
				return map[string]any{
					"success": false,
					"message": "review produced no output",
					"review":  nil,
				}, nil
			}
			return map[string]any{
				"success": true,
				"message": "review completed",
				"review":  review,
			}, nil
		},
	}
}

func compressPaperTool(compressor Compressor) Definition {
	return Definition{
		Name:        "compress_paper_content",
		Description: "Compress a paper to its essential content",
		Mode:        ModeSync,
		Params: []Param{
			{Name: "title", Type: "string", Required: true},
			{Name: "abstract", Type: "string", Default: ""},
			{Name: "content", Type: "string", Default: ""},
		},
		Failure: map[string]any{"compressed_content": nil},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			title, err := stringArg(args, "title")
			if err != nil {
				return nil, err
			}
			abstract, err := stringArgDefault(args, "abstract", "")
			if err != nil {
				return nil, err
			}
			content, err := stringArgDefault(args, "content", "")
			if err != nil {
				return nil, err
			}

			compressed, err := compressor.Compress(ctx, title, abstract, content)
			if err != nil {
				return nil, collaboratorFailure(fmt.Sprintf("compression failed: %v", err), err)
			}
			if compressed == "" {
				return map[string]any{
					"success":            false,
					"message":            "compression produced no output",
					"compressed_content": nil,
				}, nil
			}
			return map[string]any{
				"success":            true,
				"message":            "compression completed",
				"compressed_content": compressed,
			}, nil
		},
	}
}

func serverInfoTool(r *Registry, info ServerInfo) Definition {
	return Definition{
		Name:        "get_server_info",
		Description: "Describe this server and its tools",
		Mode:        ModeSync,
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return map[string]any{
				"name":        info.Name,
				"version":     info.Version,
				"description": info.Description,
				"tools":       r.Names(),
				"status":      "running",
			}, nil
		},
	}
}
