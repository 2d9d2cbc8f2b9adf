package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtbook/models"
	"courtbook/services/slots"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned when no credentials were provided.
var ErrNotConfigured = errors.New("google calendar not configured")

type Credentials struct {
	CredentialsFile string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
}

// ClientOptions picks the auth method: a service account file wins over an
// OAuth refresh token. It returns ErrNotConfigured when neither is set.
func (c Credentials) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	switch {
	case c.CredentialsFile != "":
		return []option.ClientOption{
			option.WithCredentialsFile(c.CredentialsFile),
			option.WithScopes(gcal.CalendarScope),
		}, nil
	case c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "":
		conf := &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarScope},
		}
		ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
		return []option.ClientOption{option.WithTokenSource(ts)}, nil
	default:
		return nil, ErrNotConfigured
	}
}

// GoogleCalendar reads busy time from and writes confirmed reservations to
// one Google calendar.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	logger     *zap.Logger
}

func NewGoogleCalendar(ctx context.Context, calendarID string, loc *time.Location, logger *zap.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, loc: loc, logger: logger}, nil
}

// BusyIntervals runs a free/busy query for [start, end).
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	resp, err := g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  start.UTC().Format(time.RFC3339),
		TimeMax:  end.UTC().Format(time.RFC3339),
		TimeZone: g.loc.String(),
		Items:    []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("freebusy query: calendar %s: %s", g.calendarID, cal.Errors[0].Reason)
	}

	out := make([]models.Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		s, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			g.logger.Warn("Skipping busy period with bad start", zap.String("start", b.Start))
			continue
		}
		e, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			g.logger.Warn("Skipping busy period with bad end", zap.String("end", b.End))
			continue
		}
		out = append(out, models.Interval{Start: s, End: e})
	}
	return out, nil
}

// CreateEvent inserts ev and returns the new event id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	day, err := time.ParseInLocation("2006-01-02", ev.Date, g.loc)
	if err != nil {
		return "", fmt.Errorf("event date %q: %w", ev.Date, err)
	}
	r, err := slots.Parse(ev.Slot)
	if err != nil {
		return "", fmt.Errorf("event slot %q: %w", ev.Slot, err)
	}
	start, end := slots.Bounds(day, r)

	tz := ev.Timezone
	if tz == "" {
		tz = g.loc.String()
	}
	created, err := g.svc.Events.Insert(g.calendarID, &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: tz},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}
