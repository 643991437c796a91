// Package provider adapts the Google Calendar API into the minimal
// listEvents/insertEvent/updateEvent/deleteEvent contract the Apply Engine
// (spec.md §4.9) and the calendar raw ingest adapter (§4.2) need. It
// carries no scheduling semantics of its own — only CRUD and shape
// translation.
package provider

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
)

// CalendarClient is the Google Calendar-backed provider client.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
}

// NewCalendarClient builds a CalendarClient using a stored OAuth2 token,
// refreshing it via the installed-app flow's client config, in the same
// credentials-file-loading style as the teacher's
// NewGoogleCalendarProvider, but building an oauth2.Config (read-write
// token flow) instead of a service-account JWT (read-only, no refresh
// needed) config.
func NewCalendarClient(ctx context.Context, credentialsPath, calendarID string, tokens TokenStore) (*CalendarClient, error) {
	if !filepath.IsAbs(credentialsPath) {
		return nil, errs.New(errs.KindValidation, "invalid_path", "credentials path must be absolute: "+credentialsPath)
	}
	b, err := os.ReadFile(filepath.Clean(credentialsPath))
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "credentials_read_failed", "failed to read credentials file", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "invalid_credentials", "failed to parse credentials", err)
	}

	tok, err := tokens.Load()
	if err != nil {
		return nil, err
	}

	httpClient := oauthCfg.Client(ctx, tok)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errs.Wrap(errs.KindProvider, "service_init_failed", "failed to create calendar service", err)
	}

	return &CalendarClient{service: service, calendarID: calendarID}, nil
}

// ListEvents returns every event on the active calendar — including
// cancelled rows and recurrence master/override instances — as raw
// *calendar.Event values. Filtering and translation into
// model.RawCalendarEvent is the calendar raw ingest adapter's job
// (pkg/ingest, spec.md §4.2), not this client's.
func (c *CalendarClient) ListEvents(ctx context.Context) ([]*calendar.Event, error) {
	var out []*calendar.Event
	pageToken := ""
	for {
		call := c.service.Events.List(c.calendarID).ShowDeleted(true).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, wrapProviderErr("list_events_failed", "failed to list calendar events", err)
		}
		out = append(out, resp.Items...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

// InsertEvent creates a new calendar event and returns its assigned
// provider event ID.
func (c *CalendarClient) InsertEvent(ctx context.Context, ev *calendar.Event) (string, error) {
	created, err := c.service.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", wrapProviderErr("insert_event_failed", "failed to insert calendar event", err)
	}
	return created.Id, nil
}

// UpdateEvent replaces a calendar event in full. If etag is non-empty it is
// enforced via If-Match; a 412 Precondition Failed is a hard failure
// (spec.md §4.9), never silently retried.
func (c *CalendarClient) UpdateEvent(ctx context.Context, providerEventID string, ev *calendar.Event, etag string) error {
	call := c.service.Events.Update(c.calendarID, providerEventID, ev).Context(ctx)
	if etag != "" {
		call = call.IfMatch(etag)
	}
	if _, err := call.Do(); err != nil {
		if isPreconditionFailed(err) {
			return errs.Wrap(errs.KindProvider, "etag_mismatch", "calendar event changed since last read (etag mismatch)", err)
		}
		return wrapProviderErr("update_event_failed", "failed to update calendar event", err)
	}
	return nil
}

// DeleteEvent deletes a calendar event by provider event ID only.
func (c *CalendarClient) DeleteEvent(ctx context.Context, providerEventID string) error {
	if err := c.service.Events.Delete(c.calendarID, providerEventID).Context(ctx).Do(); err != nil {
		return wrapProviderErr("delete_event_failed", "failed to delete calendar event", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if ok := asGoogleAPIError(err, &gerr); ok {
		return gerr.Code == 412
	}
	return false
}

func asGoogleAPIError(err error, target **googleapi.Error) bool {
	if g, ok := err.(*googleapi.Error); ok {
		*target = g
		return true
	}
	return false
}

func wrapProviderErr(code, msg string, err error) *errs.Error {
	return errs.Wrap(errs.KindProvider, code, msg, err)
}
