package acl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const (
	opFetchQuotes = "fetch quotes"
	opSubmitQuote = "submit quote"
)

// RemoteQuoteClientConfig contains configuration for the remote quote client.
type RemoteQuoteClientConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should be set to the remote collection's origin.
	// Its retry policy is not used: a failed fetch or submission is final.
	Client *clients.Client

	// ReadPath is the collection path listed during sync, e.g. "/posts".
	ReadPath string

	// WritePath is the path new quotes are POSTed to.
	WritePath string

	// Category is stamped on every quote fetched from the remote.
	Category string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// RemoteQuoteClient reads and writes the remote quote collection.
type RemoteQuoteClient struct {
	client    *clients.Client
	readPath  string
	writePath string
	category  string
	logger    *slog.Logger
}

var (
	_ ports.RemoteQuoteSource = (*RemoteQuoteClient)(nil)
	_ ports.RemoteQuoteSink   = (*RemoteQuoteClient)(nil)
	_ ports.HealthChecker     = (*RemoteQuoteClient)(nil)
)

// NewRemoteQuoteClient creates the adapter. Every call is a single attempt;
// the sync schedule is the only retry.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewRemoteQuoteClient(cfg RemoteQuoteClientConfig) *RemoteQuoteClient {
	if cfg.Client == nil {
		panic("RemoteQuoteClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	category := cfg.Category
	if category == "" {
		category = "Server"
	}

	return &RemoteQuoteClient{
		client:    cfg.Client.SingleAttempt(),
		readPath:  cfg.ReadPath,
		writePath: cfg.WritePath,
		category:  category,
		logger:    logger,
	}
}

// remotePost is the external DTO. Only title matters; the rest is ignored.
type remotePost struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// remoteQuote is what SubmitQuote sends.
type remoteQuote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// FetchQuotes lists the remote collection, one quote per titled post, in
// remote order.
func (c *RemoteQuoteClient) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.readPath))

	resp, err := c.client.Get(ctx, c.readPath)

	body, err := accept(opFetchQuotes, resp, err)
	if err != nil {
		return nil, err
	}

	posts, err := decodeBody[[]remotePost](body)
	if err != nil {
		return nil, domain.NewNetworkError(opFetchQuotes, 0, err)
	}

	quotes, err := translateAll(posts, c.translatePost)
	if err != nil {
		return nil, domain.NewNetworkError(opFetchQuotes, 0, err)
	}

	c.logger.Log(ctx, logging.LevelTrace, "translated remote posts",
		slog.Int("posts", len(posts)),
		slog.Int("quotes", len(quotes)))

	return quotes, nil
}

// translatePost maps a post onto a quote; untitled posts are dropped.
func (c *RemoteQuoteClient) translatePost(p *remotePost) (domain.Quote, error) {
	text := strings.TrimSpace(p.Title)
	if text == "" {
		return domain.Quote{}, errSkip
	}

	return domain.Quote{Text: text, Category: c.category}, nil
}

// SubmitQuote POSTs q to the remote collection. The response body is
// drained and ignored.
func (c *RemoteQuoteClient) SubmitQuote(ctx context.Context, q domain.Quote) error {
	c.logger.DebugContext(ctx, "submitting quote",
		slog.String("path", c.writePath),
		slog.String("category", q.Category))

	resp, err := c.client.PostJSON(ctx, c.writePath, remoteQuote{Text: q.Text, Category: q.Category})

	body, err := accept(opSubmitQuote, resp, err)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	_, _ = io.Copy(io.Discard, body)

	return nil
}

// accept hands back the body of a 2xx response. Anything else is closed and
// reported as a domain.NetworkError.
func accept(op string, resp *http.Response, err error) (io.ReadCloser, error) {
	if netErr := toNetworkError(op, resp, err); netErr != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}

		return nil, netErr
	}

	return resp.Body, nil
}

// Name keys the remote in readiness output.
func (c *RemoteQuoteClient) Name() string {
	return c.client.ServiceName()
}

// Check reports the remote as unhealthy while its circuit is open. It makes
// no request of its own.
func (c *RemoteQuoteClient) Check(_ context.Context) error {
	if state := c.client.CircuitState(); state == clients.StateOpen {
		return fmt.Errorf("circuit %s", state)
	}

	return nil
}
