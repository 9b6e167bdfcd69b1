package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"vendas/internal/core"
	ports "vendas/internal/sheets"
)

const sourceName = "sheets"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	names         ports.SheetNames
}

// Ensure interface conformance
var _ ports.RawDataSource = (*Client)(nil)

// Config describes how to reach the hosted spreadsheet.
type Config struct {
	SpreadsheetID string
	Sheets        ports.SheetNames
	// Service account credentials; when both are empty Application Default
	// Credentials are used.
	CredentialsJSON []byte
	CredentialsFile string
	// OAuth desktop client and the token saved by vendas-oauth-init. Used
	// only when no service account is configured.
	OAuthClientFile string
	OAuthTokenFile  string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for auth; LEDGER_SHEET_NAME and
// TARGETS_SHEET_NAME for the sheet names.
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg := Config{
		SpreadsheetID: strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		Sheets: ports.SheetNames{
			Ledger:  strings.TrimSpace(os.Getenv("LEDGER_SHEET_NAME")),
			Targets: strings.TrimSpace(os.Getenv("TARGETS_SHEET_NAME")),
		},
		CredentialsJSON: []byte(strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	cfg.OAuthClientFile = strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	cfg.OAuthTokenFile = strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	return New(ctx, cfg)
}

// New builds a client for cfg. Extra options are appended after the
// credential options, which lets tests point the client at a fake server.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	base := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsReadonlyScope)}
	switch {
	case len(cfg.CredentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
		base = append(base, goption.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		base = append(base, goption.WithCredentialsJSON(b))
	case cfg.OAuthClientFile != "" || cfg.OAuthTokenFile != "":
		slog.InfoContext(ctx, "Using OAuth user credentials", "token_file", cfg.OAuthTokenFile)
		ts, err := oauthTokenSource(ctx, cfg.OAuthClientFile, cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		base = append(base, goption.WithTokenSource(ts))
	default:
		slog.InfoContext(ctx, "Using application default credentials")
	}

	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.Sheets), nil
}

// OAuthScope is the scope requested by vendas-oauth-init.
const OAuthScope = gsheet.SpreadsheetsReadonlyScope

func oauthTokenSource(ctx context.Context, clientFile, tokenFile string) (oauth2.TokenSource, error) {
	if clientFile == "" {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_FILE)")
	}
	if tokenFile == "" {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_FILE)")
	}
	clientJSON, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	oc, err := googleoauth.ConfigFromJSON(clientJSON, OAuthScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tokenJSON, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return oc.TokenSource(ctx, &tok), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, names ports.SheetNames) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, names: names.WithDefaults()}
}

// ReadTables fetches the ledger and targets sheets concurrently.
func (c *Client) ReadTables(ctx context.Context) (core.RawDataset, error) {
	if c.svc == nil {
		return core.RawDataset{}, core.NewLoadError(sourceName, "", fmt.Errorf("%w: sheets service not initialized", core.ErrSourceUnavailable))
	}

	var raw core.RawDataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.readSheet(gctx, c.names.Ledger)
		raw.Ledger = t
		return err
	})
	g.Go(func() error {
		t, err := c.readSheet(gctx, c.names.Targets)
		raw.Targets = t
		return err
	})
	if err := g.Wait(); err != nil {
		return core.RawDataset{}, err
	}
	return raw, nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) (core.RawTable, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		// serials keep dates independent of the spreadsheet locale
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return core.RawTable{}, core.NewLoadError(sourceName, sheet, classify(err))
	}
	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = toStrings(row)
	}
	slog.DebugContext(ctx, "Sheet read", "sheet", sheet, "rows", len(values), "duration_ms", time.Since(start).Milliseconds())
	return core.TableFromValues(sheet, values), nil
}

// classify maps API failures onto the load error taxonomy. The Sheets API
// answers 400 "Unable to parse range" for unknown sheet names.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(gerr.Message), "unable to parse range") {
			return fmt.Errorf("%w: %s", core.ErrMissingSheet, gerr.Message)
		}
		return fmt.Errorf("%w: %d %s", core.ErrSourceUnavailable, gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
}

// quoteSheet turns a sheet name into an A1 range covering the whole sheet.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

// cellString renders an unformatted cell. Numbers keep full precision and
// never use exponent notation; text is passed through untouched.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
