package hen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/jw6ventures/henboard/internal/calendar"
)

// experimentClient implements ExperimentSource against calendarcgi.py.
type experimentClient struct {
	client   *http.Client
	endpoint string
	validate *validator.Validate
}

func (c *experimentClient) ListExperiments(ctx context.Context, username string) ([]calendar.Reservation, error) {
	defer observeBackend(ctx, "hen.list_experiments")()

	q := url.Values{}
	q.Set("action", "getexperiments")
	q.Set("username", username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch experiments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch experiments: unexpected status %d", resp.StatusCode)
	}

	var doc experimentsDoc
	if err := decodeXML(io.LimitReader(resp.Body, 8<<20), &doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]calendar.Reservation, 0, len(doc.Experiments))
	for _, e := range doc.Experiments {
		r, err := c.toReservation(e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *experimentClient) toReservation(e experimentXML) (calendar.Reservation, error) {
	if err := c.validate.Struct(e); err != nil {
		return calendar.Reservation{}, fmt.Errorf("%w: experiment %q: %v", ErrMalformedResponse, e.ID, err)
	}
	start, err := calendar.ParseDay(e.StartDate)
	if err != nil {
		return calendar.Reservation{}, fmt.Errorf("%w: experiment %q: %v", ErrMalformedResponse, e.ID, err)
	}
	end, err := calendar.ParseDay(e.EndDate)
	if err != nil {
		return calendar.Reservation{}, fmt.Errorf("%w: experiment %q: %v", ErrMalformedResponse, e.ID, err)
	}

	nodes := make([]string, 0, len(e.Nodes))
	for _, n := range e.Nodes {
		nodes = append(nodes, n.ID)
	}

	contact := e.Email
	if contact == "None" {
		contact = ""
	}
	return calendar.Reservation{
		ID:      e.ID,
		Owner:   e.User,
		Contact: contact,
		Start:   start,
		End:     end,
		NodeIDs: nodes,
		Shared:  e.Shared == "yes",
	}, nil
}
