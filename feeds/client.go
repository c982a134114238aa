package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/InjectiveLabs/metrics"
	log "github.com/InjectiveLabs/suplog"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Client submits report_price calls to a running oracle server on
// behalf of a reporter account.
type Client struct {
	baseURL string
	caller  string
	client  *http.Client

	logger  log.Logger
	svcTags metrics.Tags
}

func NewClient(baseURL, caller string) *Client {
	return &Client{
		baseURL: baseURL,
		caller:  caller,
		client: &http.Client{
			Timeout: maxRespTime,
		},

		logger: log.WithFields(log.Fields{
			"svc":      "feeds",
			"reporter": caller,
		}),
		svcTags: metrics.Tags{
			"svc": "feeds_client",
		},
	}
}

type callRequest struct {
	Caller string      `json:"caller"`
	Method string      `json:"method"`
	Args   interface{} `json:"args"`
}

type reportPriceArgs struct {
	Source string `json:"source"`

	// decimal USD string, converted to micro-dollars server-side
	Price string `json:"price"`
}

// ReportPrice submits one price observation under the given source label.
func (c *Client) ReportPrice(ctx context.Context, source string, price decimal.Decimal) error {
	metrics.ReportFuncCall(c.svcTags)
	doneFn := metrics.ReportFuncTiming(c.svcTags)
	defer doneFn()

	body, err := json.Marshal(callRequest{
		Caller: c.caller,
		Method: "report_price",
		Args: reportPriceArgs{
			Source: source,
			Price:  price.String(),
		},
	})
	if err != nil {
		metrics.ReportFuncError(c.svcTags)
		return errors.Wrap(err, "failed to marshal report_price call")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oracle/call", bytes.NewReader(body))
	if err != nil {
		metrics.ReportFuncError(c.svcTags)
		return errors.Wrap(err, "failed to create report_price request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ReportFuncError(c.svcTags)
		return errors.Wrapf(err, "failed to submit report_price to %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ReportFuncError(c.svcTags)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxRespBytes))
		return errors.Errorf("report_price rejected with status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
