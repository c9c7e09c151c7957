// Package google reads a classified transaction catalog from a Google Sheets
// tab. The first row is a header naming the columns; column order is free.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tally/internal/catalog"
	"tally/internal/log"
)

const (
	defaultSheetName = "Transactions"
	readAttempts     = 3
	readDelay        = 2 * time.Second
)

// Config selects the spreadsheet and credentials. Service account
// credentials win over an OAuth user token.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string

	OAuthClientFile string
	OAuthClientJSON string
	OAuthTokenFile  string
}

// valuesReader is the slice of the Sheets API the source needs.
type valuesReader interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type serviceReader struct {
	svc *gsheet.Service
}

func (r serviceReader) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type Client struct {
	values        valuesReader
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
	delay         time.Duration
}

var _ catalog.Source = (*Client)(nil)

// New creates a Sheets-backed catalog source. Service account credentials
// are used when present, inline JSON taking precedence over a file;
// otherwise a saved OAuth user token is.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	var auth goption.ClientOption
	if creds, err := credentials(cfg); err == nil {
		auth = goption.WithCredentialsJSON(creds)
	} else if cfg.usesOAuth() {
		if auth, err = oauthOption(ctx, cfg); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(serviceReader{svc: svc}, cfg, logger), nil
}

func newClient(values valuesReader, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = defaultSheetName
	}
	return &Client{
		values:        values,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentCatalog),
		delay:         readDelay,
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// Load reads the whole tab. Rate limiting and server errors are retried
// with backoff.
func (c *Client) Load(ctx context.Context) (*catalog.Catalog, error) {
	rng := fmt.Sprintf("%s!A:O", c.sheetName)

	var rows [][]any
	err := retry.Do(
		func() error {
			var err error
			rows, err = c.values.Get(ctx, c.spreadsheetID, rng)
			return err
		},
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			if retryable(err) {
				c.logger.WarnContext(ctx, "sheets read throttled, will retry", log.FieldError, err)
				return true
			}
			return false
		}),
		retry.Attempts(readAttempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, rng)
		}
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	records, skipped, err := parseRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "skipped unreadable rows", "skipped", skipped, log.FieldSource, rng)
	}
	c.logger.InfoContext(ctx, "catalog loaded from sheets", log.FieldRecords, len(records), log.FieldSource, rng)

	return &catalog.Catalog{
		Metadata: metadataFor(c.spreadsheetID, c.sheetName),
		Sections: sectionsOf(records),
		Records:  records,
	}, nil
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
