package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets API errors.
var (
	ErrNoSpreadsheet       = errors.New("sheets: spreadsheet id is not configured")
	ErrSheetUnauthorized   = errors.New("sheets: unauthorised (invalid credentials)")
	ErrSheetForbidden      = errors.New("sheets: forbidden (spreadsheet not shared with the service account)")
	ErrSheetNotFound       = errors.New("sheets: spreadsheet or sheet not found")
	ErrSheetRateLimited    = errors.New("sheets: rate limit exceeded")
	ErrSheetsNotConfigured = errors.New("sheets: client is not configured")
)

// SheetValuesFetcher returns the raw cell values of a whole sheet.
type SheetValuesFetcher interface {
	FetchValues(ctx context.Context, sheetName string) ([][]interface{}, error)
}

// SheetsOptions configures a SheetsClient. At most one credential source is used,
// in the order CredentialsJSON, CredentialsFile, APIKey; with none, Application Default Credentials apply.
type SheetsOptions struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	APIKey          string
	MaxRetries      int
	RetryInterval   time.Duration
	ClientOptions   []option.ClientOption
}

// SheetsClient reads spreadsheet values through the Sheets v4 API.
type SheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
	maxRetries    uint64
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewSheetsClient builds a read-only Sheets client.
func NewSheetsClient(ctx context.Context, opts SheetsOptions, logger *zap.Logger) (*SheetsClient, error) {
	if opts.SpreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		maxRetries:    uint64(retries),
		retryInterval: interval,
		logger:        logger,
	}, nil
}

// FetchValues returns every populated cell of sheetName as raw values; numbers arrive unformatted.
// Rate limits, server errors and network failures are retried.
func (c *SheetsClient) FetchValues(ctx context.Context, sheetName string) ([][]interface{}, error) {
	if c == nil || c.svc == nil {
		return nil, ErrSheetsNotConfigured
	}

	var resp *sheets.ValueRange
	operation := func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(sheetName)).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).
			Do()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("sheets fetch failed, retrying",
			zap.String("sheet", sheetName),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("fetch sheet %q: %w", sheetName, wrapSheetsError(err))
	}

	return resp.Values, nil
}

// FetchTable fetches a sheet and renders every cell as a string.
func FetchTable(ctx context.Context, fetcher SheetValuesFetcher, sheetName string) ([][]string, error) {
	if fetcher == nil {
		return nil, ErrSheetsNotConfigured
	}
	values, err := fetcher.FetchValues(ctx, sheetName)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = cellString(v)
		}
	}
	return rows, nil
}

// TableRecords turns a header row plus data rows into header->value maps.
// Empty headers become column_N and duplicates get a numeric suffix.
func TableRecords(rows [][]string) []map[string]string {
	if len(rows) == 0 {
		return []map[string]string{}
	}

	headers := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i)
		}
		unique := h
		for n := 1; seen[unique]; n++ {
			unique = h + "_" + strconv.Itoa(n)
		}
		seen[unique] = true
		headers[i] = unique
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			rec[h] = cell(row, i)
		}
		records = append(records, rec)
	}
	return records
}

func sheetRange(sheetName string) string {
	if strings.ContainsAny(sheetName, " '!") {
		return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	}
	return sheetName
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// isTransient reports whether a fetch error is worth retrying. Credential
// and token failures are not; they surface immediately.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func wrapSheetsError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrSheetUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrSheetForbidden, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrSheetNotFound, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrSheetRateLimited, err)
	default:
		return err
	}
}
