package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/edumate/internal/ingest"
	"github.com/Aman-CERP/edumate/internal/search"
	"github.com/Aman-CERP/edumate/internal/telemetry"
	"github.com/Aman-CERP/edumate/pkg/version"
)

const (
	defaultTopK = 3
	maxTopK     = 50

	queryMetricsURI = "edumate://query_metrics"
)

// Searcher answers topic queries.
type Searcher interface {
	SearchByTopic(ctx context.Context, topic string, topK int) (*search.TopicResult, error)
	BestMatchContent(ctx context.Context, query string) (string, error)
}

// Indexer scans document folders and summarises the store.
type Indexer interface {
	Scan(ctx context.Context, root string) (int, error)
	Summary() ingest.Summary
}

// Server is the MCP server for edumate.
type Server struct {
	mcp      *mcp.Server
	searcher Searcher
	indexer  Indexer
	rootPath string
	logger   *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// SearchByTopicInput defines the input schema for the search_by_topic tool.
type SearchByTopicInput struct {
	Topic string `json:"topic" jsonschema:"course, chapter, title or free-text topic to look up"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of documents, default 3"`
}

// SearchByTopicOutput defines the output schema for the search_by_topic tool.
type SearchByTopicOutput struct {
	Matches       []MatchOutput `json:"matches" jsonschema:"matching documents, best first"`
	TotalFound    int           `json:"total_found" jsonschema:"distinct matching documents before truncation"`
	HasExactMatch bool          `json:"has_exact_match" jsonschema:"true if a title or topic matched literally"`
}

// MatchOutput is one document in a search_by_topic response.
type MatchOutput struct {
	FilePath   string   `json:"file_path"`
	Title      string   `json:"title"`
	Course     string   `json:"course"`
	Chapter    string   `json:"chapter"`
	Topics     []string `json:"topics"`
	ChunkID    int      `json:"chunk_id"`
	Similarity float64  `json:"similarity" jsonschema:"score between -1 and 1"`
	MatchType  string   `json:"match_type" jsonschema:"metadata or content"`
	Content    string   `json:"content" jsonschema:"matched chunk text"`
}

// BestMatchInput defines the input schema for the best_match tool.
type BestMatchInput struct {
	Query string `json:"query" jsonschema:"question or passage to find the closest chunk for"`
}

// BestMatchOutput defines the output schema for the best_match tool.
type BestMatchOutput struct {
	Content string `json:"content" jsonschema:"text of the top topic search match, empty if nothing matched"`
	Found   bool   `json:"found"`
}

// IndexStatsInput defines the input schema for the index_stats tool (no parameters).
type IndexStatsInput struct{}

// ScanDocumentsInput defines the input schema for the scan_documents tool (no parameters).
type ScanDocumentsInput struct{}

// ScanDocumentsOutput defines the output schema for the scan_documents tool.
type ScanDocumentsOutput struct {
	FilesAdded int    `json:"files_added"`
	Root       string `json:"root"`
}

// NewServer creates a new MCP server. indexer may be nil, in which case
// scan_documents and index_stats are not registered.
func NewServer(searcher Searcher, indexer Indexer, rootPath string) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}

	s := &Server{
		searcher: searcher,
		indexer:  indexer,
		rootPath: rootPath,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "edumate",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// SetMetrics sets the query metrics collector and registers the
// query_metrics resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.mcp.AddResource(&mcp.Resource{
			Name:        "query_metrics",
			URI:         queryMetricsURI,
			Description: "Topic search telemetry: match kinds, popular terms and zero-result queries",
			MIMEType:    "application/json",
		}, s.handleQueryMetrics)
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	tools := []ToolInfo{
		{
			Name:        "search_by_topic",
			Description: "Find study documents about a topic. Matches course, chapter and title names literally and document content by meaning. Returns each document once, best first.",
		},
		{
			Name:        "best_match",
			Description: "Return the text of the top result of a topic search for a question, or nothing if the search finds nothing.",
		},
	}
	if s.indexer != nil {
		tools = append(tools,
			ToolInfo{
				Name:        "index_stats",
				Description: "Report how many chunks and documents are indexed, per course, and the on-disk size of the index.",
			},
			ToolInfo{
				Name:        "scan_documents",
				Description: "Scan the document folder now and index new or changed files. Returns the number of files added.",
			},
		)
	}
	return tools
}

func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	tools := s.ListTools()
	describe := func(name string) string {
		for _, t := range tools {
			if t.Name == name {
				return t.Description
			}
		}
		return ""
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_by_topic",
		Description: describe("search_by_topic"),
	}, s.mcpSearchByTopicHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "best_match",
		Description: describe("best_match"),
	}, s.mcpBestMatchHandler)

	if s.indexer != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "index_stats",
			Description: describe("index_stats"),
		}, s.mcpIndexStatsHandler)

		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "scan_documents",
			Description: describe("scan_documents"),
		}, s.mcpScanHandler)
	}

	s.logger.Info("MCP tools registered", slog.Int("count", len(tools)))
}

// mcpSearchByTopicHandler is the MCP SDK handler for search_by_topic.
func (s *Server) mcpSearchByTopicHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchByTopicInput) (
	*mcp.CallToolResult,
	SearchByTopicOutput,
	error,
) {
	if strings.TrimSpace(input.Topic) == "" {
		return nil, SearchByTopicOutput{}, NewInvalidParamsError("topic parameter is required")
	}
	topK := clampLimit(input.TopK, defaultTopK, 1, maxTopK)

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_by_topic started",
		slog.String("request_id", requestID),
		slog.String("topic", input.Topic),
		slog.Int("top_k", topK))

	res, err := s.searcher.SearchByTopic(ctx, input.Topic, topK)
	if err != nil {
		s.logger.Error("search_by_topic failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, SearchByTopicOutput{}, MapError(err)
	}

	s.logger.Info("search_by_topic completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(res.Matches)))

	return textResult(FormatTopicResults(input.Topic, res)), toTopicOutput(res), nil
}

// mcpBestMatchHandler is the MCP SDK handler for best_match.
func (s *Server) mcpBestMatchHandler(ctx context.Context, _ *mcp.CallToolRequest, input BestMatchInput) (
	*mcp.CallToolResult,
	BestMatchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, BestMatchOutput{}, NewInvalidParamsError("query parameter is required")
	}
	content, err := s.searcher.BestMatchContent(ctx, input.Query)
	if err != nil {
		return nil, BestMatchOutput{}, MapError(err)
	}
	return nil, BestMatchOutput{Content: content, Found: content != ""}, nil
}

// mcpIndexStatsHandler is the MCP SDK handler for index_stats.
func (s *Server) mcpIndexStatsHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatsInput) (
	*mcp.CallToolResult,
	ingest.Summary,
	error,
) {
	sum := s.indexer.Summary()
	return textResult(FormatSummary(sum)), sum, nil
}

// mcpScanHandler is the MCP SDK handler for scan_documents.
func (s *Server) mcpScanHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ScanDocumentsInput) (
	*mcp.CallToolResult,
	ScanDocumentsOutput,
	error,
) {
	if s.rootPath == "" {
		return nil, ScanDocumentsOutput{}, NewInvalidParamsError("no document folder configured")
	}
	added, err := s.indexer.Scan(ctx, s.rootPath)
	if err != nil {
		return nil, ScanDocumentsOutput{}, MapError(err)
	}
	return nil, ScanDocumentsOutput{FilesAdded: added, Root: s.rootPath}, nil
}

func (s *Server) handleQueryMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	content, err := json.MarshalIndent(metrics.Snapshot(), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      queryMetricsURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}

// Serve runs the server over transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func toTopicOutput(res *search.TopicResult) SearchByTopicOutput {
	out := SearchByTopicOutput{
		Matches:       make([]MatchOutput, 0, len(res.Matches)),
		TotalFound:    res.TotalFound,
		HasExactMatch: res.HasExactMatch,
	}
	for _, m := range res.Matches {
		out.Matches = append(out.Matches, MatchOutput{
			FilePath:   m.Metadata.FilePath,
			Title:      m.Metadata.Title,
			Course:     m.Metadata.Course,
			Chapter:    m.Metadata.Chapter,
			Topics:     m.Metadata.Topics,
			ChunkID:    m.Metadata.ChunkID,
			Similarity: float64(m.Similarity),
			MatchType:  string(m.MatchType),
			Content:    m.Text,
		})
	}
	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
