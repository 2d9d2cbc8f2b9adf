package booking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"
	"courtbook/services/availability"
	"courtbook/services/idempotency"
	"courtbook/services/messages"
	"courtbook/services/reservation"
	"courtbook/services/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outbound struct {
	kind string
	to   string
	body string
	url  string
	ids  []string
}

type recorder struct {
	mu   sync.Mutex
	sent []outbound
}

func (r *recorder) add(o outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, o)
}

func (r *recorder) SendText(_ context.Context, to, body string) error {
	r.add(outbound{kind: "text", to: to, body: body})
	return nil
}

func (r *recorder) SendButtons(_ context.Context, to, body string, buttons []models.Button) error {
	o := outbound{kind: "buttons", to: to, body: body}
	for _, b := range buttons {
		o.ids = append(o.ids, b.ID)
	}
	r.add(o)
	return nil
}

func (r *recorder) SendList(_ context.Context, to, _, body, _ string, sections []models.Section) error {
	o := outbound{kind: "list", to: to, body: body}
	for _, s := range sections {
		for _, row := range s.Rows {
			o.ids = append(o.ids, row.ID)
		}
	}
	r.add(o)
	return nil
}

func (r *recorder) SendLinkButton(_ context.Context, to, body, url, _ string) error {
	r.add(outbound{kind: "link", to: to, body: body, url: url})
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recorder) last(t *testing.T) outbound {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent)
	return r.sent[len(r.sent)-1]
}

type fakeLinks struct{ calls int32 }

func (f *fakeLinks) CreateLink(_ context.Context, req models.PaymentLinkRequest) (models.PaymentLink, error) {
	atomic.AddInt32(&f.calls, 1)
	return models.PaymentLink{ID: "plink_" + req.ReservationID, URL: "https://pay.example/" + req.ReservationID}, nil
}

var testCatalog = models.Catalog{
	Brand:         "Twenty44",
	MembershipURL: "https://twenty44.in/membership",
	Activities: []models.Option{
		{Key: "pickleball", Title: "Pickleball"},
		{Key: "padel", Title: "Padel"},
	},
	Locations: []models.Option{{Key: "main", Title: "Main Centre"}},
	Periods: []models.Period{
		{Key: "morning", Title: "Morning", Start: 360, End: 630},
		{Key: "midday", Title: "Midday", Start: 630, End: 900},
		{Key: "afternoon", Title: "Afternoon", Start: 900, End: 1170},
		{Key: "evening", Title: "Evening", Start: 1170, End: 1440},
	},
	Addons:    []models.Addon{{Key: "gym", Name: "Gym Access", Price: 200000}},
	BasePrice: 100000,
	Currency:  "INR",
	Symbol:    "₹",
	MaxSlots:  4,
}

type harness struct {
	router *Router
	repo   *conversationRepo.MemoryConversationRepo
	out    *recorder
	links  *fakeLinks
	seq    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2025, 10, 30, 9, 0, 0, 0, loc) }
	tmpl, err := slots.NewTemplate("06:00", "24:00", 60)
	require.NoError(t, err)

	repo := conversationRepo.NewMemoryConversationRepo()
	oracle := availability.NewOracle(nil, repo, tmpl, loc, time.Second, zap.NewNop(), availability.WithClock(clock))
	links := &fakeLinks{}
	engine := reservation.NewEngine(repo, oracle, links, nil, testCatalog, 0, time.Second, zap.NewNop())
	out := &recorder{}
	guard := idempotency.NewGuard(nil, repo, time.Hour, zap.NewNop())

	return &harness{
		router: NewRouter(repo, guard, oracle, engine, out, testCatalog, loc, zap.NewNop(), WithClock(clock)),
		repo:   repo,
		out:    out,
		links:  links,
	}
}

// send delivers input as a fresh message and returns its id.
func (h *harness) send(t *testing.T, phone, input string) string {
	t.Helper()
	h.seq++
	id := fmt.Sprintf("wamid.%s.%d", phone, h.seq)
	h.deliver(t, phone, id, input)
	return id
}

func (h *harness) deliver(t *testing.T, phone, id, input string) {
	t.Helper()
	msg := models.InboundMessage{From: phone, MessageID: id}
	if models.LooksLikeSelection(input) {
		msg.ReplyID = input
	} else {
		msg.Text = input
	}
	require.NoError(t, h.router.Handle(context.Background(), msg))
}

func (h *harness) conv(t *testing.T, phone string) *models.Conversation {
	t.Helper()
	conv, err := h.repo.GetActiveByPhone(context.Background(), phone)
	require.NoError(t, err)
	return conv
}

func (h *harness) seed(t *testing.T, phone string, step models.Step, draft models.Draft) *models.Conversation {
	t.Helper()
	conv := models.NewConversation(phone, step, time.Now())
	conv.Draft = draft
	require.NoError(t, h.repo.Create(context.Background(), conv))
	return conv
}

func baseDraft() models.Draft {
	return models.Draft{Activity: "pickleball", Location: "main", Date: "2025-11-01"}
}

func TestStartOffersActivitiesLocationsAndDates(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000001"

	h.send(t, phone, "Start")
	welcome := h.out.last(t)
	assert.Equal(t, "buttons", welcome.kind)
	assert.Equal(t, []string{"activity_pickleball", "activity_padel", "menu_membership"}, welcome.ids)
	assert.Equal(t, models.StepSelectingActivity, h.conv(t, phone).Step)

	h.send(t, phone, "activity_pickleball")
	locations := h.out.last(t)
	assert.Equal(t, "list", locations.kind)
	assert.Equal(t, []string{"location_main"}, locations.ids)

	h.send(t, phone, "location_main")
	dates := h.out.last(t)
	assert.Equal(t, "list", dates.kind)
	assert.Equal(t, []string{"dt_0", "dt_1", "dt_2", "dt_3", "dt_4", "dt_5", "dt_6"}, dates.ids)

	conv := h.conv(t, phone)
	assert.Equal(t, models.StepSelectingDate, conv.Step)
	assert.Equal(t, "2025-10-30", conv.Draft.DateOptions["0"])
	assert.Equal(t, "2025-11-05", conv.Draft.DateOptions["6"])
}

func TestFullBookingReachesPaymentPending(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000002"

	for _, step := range []string{"hi", "activity_pickleball", "location_main", "dt_2"} {
		h.send(t, phone, step)
	}
	periods := h.out.last(t)
	assert.Equal(t, []string{"period_morning", "period_midday", "period_afternoon", "period_evening"}, periods.ids)

	h.send(t, phone, "period_morning")
	slotMenu := h.out.last(t)
	assert.Equal(t, []string{"sl_0", "sl_1", "sl_2", "sl_3", "sl_4"}, slotMenu.ids)
	assert.Equal(t, "09:00 - 10:00", h.conv(t, phone).Draft.SlotOptions["3"])

	h.send(t, phone, "sl_3")
	ask := h.out.last(t)
	assert.Equal(t, []string{"addslot_yes", "addslot_no"}, ask.ids)
	assert.Contains(t, ask.body, "09:00 - 10:00")

	h.send(t, phone, "addslot_no")
	assert.Equal(t, promptName, h.out.last(t).body)

	h.send(t, phone, "Asha")
	assert.Equal(t, models.StepSelectingAddons, h.conv(t, phone).Step)

	h.send(t, phone, "addon_gym")
	assert.Contains(t, h.out.last(t).body, "Added: Gym Access")

	h.send(t, phone, "addon_none")
	summary := h.out.last(t)
	assert.Equal(t, []string{"confirm_yes", "confirm_no"}, summary.ids)
	assert.Contains(t, summary.body, "Total: ₹3000")
	assert.Contains(t, summary.body, "Name: Asha")

	h.send(t, phone, "confirm_yes")
	pay := h.out.last(t)
	assert.Equal(t, "link", pay.kind)
	assert.Contains(t, pay.url, "https://pay.example/")

	conv := h.conv(t, phone)
	assert.Equal(t, models.StepPaymentPending, conv.Step)
	assert.True(t, conv.Held)
	assert.False(t, conv.Paid)
	assert.Equal(t, "09:00 - 10:00", conv.TimeSlot)
	assert.Equal(t, int64(300000), conv.TotalAmount)

	// Any later message re-sends the same link.
	h.send(t, phone, "hello?")
	reminder := h.out.last(t)
	assert.Equal(t, "link", reminder.kind)
	assert.Equal(t, pay.url, reminder.url)
	assert.Equal(t, int32(1), h.links.calls)
}

func TestAdditionalSlotLoop(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000003"
	draft := baseDraft()
	draft.Slots = []string{"09:00 - 10:00"}
	h.seed(t, phone, models.StepAskingAdditionalSlot, draft)

	h.send(t, phone, "addslot_yes")
	assert.Equal(t, models.StepSelectingTimePeriodAdditional, h.conv(t, phone).Step)

	h.send(t, phone, "period_morning")
	offered := h.conv(t, phone).Draft.SlotOptions
	assert.Equal(t, models.StepSelectingTimeSlotAdditional, h.conv(t, phone).Step)
	assert.Len(t, offered, 4)
	for _, label := range offered {
		assert.NotEqual(t, "09:00 - 10:00", label)
	}

	h.send(t, phone, "sl_0")
	conv := h.conv(t, phone)
	assert.Equal(t, []string{"09:00 - 10:00", "06:00 - 07:00"}, conv.Draft.Slots)
	assert.Equal(t, models.StepAskingAdditionalSlot, conv.Step)
	assert.Contains(t, h.out.last(t).body, "Your slots:")
}

func TestReplayedMessageIsIgnored(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000004"

	first := h.send(t, phone, "start")
	h.deliver(t, phone, first, "start")
	assert.Equal(t, 1, h.out.count())

	id := h.send(t, phone, "activity_padel")
	before := h.conv(t, phone)
	sent := h.out.count()

	h.deliver(t, phone, id, "activity_padel")
	after := h.conv(t, phone)
	assert.Equal(t, sent, h.out.count())
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.ID, after.ID)
}

func TestNameCollection(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000005"
	draft := baseDraft()
	draft.Slots = []string{"09:00 - 10:00"}
	seeded := h.seed(t, phone, models.StepCollectingName, draft)

	h.send(t, phone, "A")
	assert.Equal(t, promptInvalidName, h.out.last(t).body)
	assert.Equal(t, models.StepCollectingName, h.conv(t, phone).Step)

	// Selection-shaped input is never taken as a name.
	h.send(t, phone, "dt_0")
	assert.Equal(t, messages.Help, h.out.last(t).body)
	h.send(t, phone, "0-1")
	assert.Equal(t, messages.Help, h.out.last(t).body)
	assert.Empty(t, h.conv(t, phone).Draft.Name)

	h.send(t, phone, "  Asha   Rao ")
	conv := h.conv(t, phone)
	assert.Equal(t, "Asha Rao", conv.Draft.Name)
	assert.Equal(t, models.StepSelectingAddons, conv.Step)
	assert.Equal(t, seeded.ID, conv.ID)
}

func TestPositionalRepliesAreTranslated(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000006"
	draft := models.Draft{
		Activity:    "pickleball",
		Location:    "main",
		DateOptions: map[string]string{"0": "2025-10-31", "1": "2025-11-01"},
	}
	h.seed(t, phone, models.StepSelectingDate, draft)

	h.send(t, phone, "0-1")
	conv := h.conv(t, phone)
	assert.Equal(t, "2025-11-01", conv.Draft.Date)
	assert.Equal(t, models.StepSelectingTimePeriod, conv.Step)

	h.send(t, phone, "0-9")
	assert.Equal(t, promptNotOnMenu, h.out.last(t).body)
	assert.Equal(t, models.StepSelectingTimePeriod, h.conv(t, phone).Step)
	assert.Empty(t, h.conv(t, phone).Draft.Period)

	h.send(t, phone, "0-3")
	conv = h.conv(t, phone)
	assert.Equal(t, "evening", conv.Draft.Period)
	assert.Equal(t, models.StepSelectingTimeSlot, conv.Step)
}

func TestUnexpectedInputFallsBackWithoutMutation(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000007"
	h.seed(t, phone, models.StepSelectingLocation, models.Draft{Activity: "padel"})
	before := h.conv(t, phone)

	for _, input := range []string{"dt_0", "confirm_yes", "what?"} {
		h.send(t, phone, input)
		assert.Equal(t, messages.Help, h.out.last(t).body, input)
	}
	after := h.conv(t, phone)
	assert.Equal(t, models.StepSelectingLocation, after.Step)
	assert.Equal(t, before.Draft.Activity, after.Draft.Activity)
	assert.Empty(t, after.Draft.Location)
}

func TestUnknownDateIndexExpiresSession(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000008"
	h.seed(t, phone, models.StepSelectingDate, models.Draft{DateOptions: map[string]string{"0": "2025-11-01"}})

	h.send(t, phone, "dt_5")
	assert.Equal(t, messages.SessionExpired, h.out.last(t).body)
	assert.Equal(t, models.StepSelectingDate, h.conv(t, phone).Step)
}

func TestSlotTakenBeforeSelection(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000009"
	draft := baseDraft()
	draft.Period = "morning"
	draft.SlotOptions = map[string]string{"0": "09:00 - 10:00"}
	h.seed(t, phone, models.StepSelectingTimeSlot, draft)

	holder := models.NewConversation("919800000099", models.StepPaymentPending, time.Now())
	holder.Activity, holder.Location, holder.Date = "pickleball", "main", "2025-11-01"
	holder.TimeSlot = "09:00 - 10:00"
	holder.Slots = []string{"09:00 - 10:00"}
	holder.Held = true
	require.NoError(t, h.repo.Create(context.Background(), holder))

	h.send(t, phone, "sl_0")
	assert.Equal(t, promptSlotGone, h.out.last(t).body)
	conv := h.conv(t, phone)
	assert.Equal(t, models.StepSelectingTimeSlot, conv.Step)
	assert.Empty(t, conv.Draft.Slots)
}

func TestConfirmNoAndCancelDiscard(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000010"
	draft := baseDraft()
	draft.Slots = []string{"09:00 - 10:00"}
	draft.Name = "Asha"
	h.seed(t, phone, models.StepConfirmingBooking, draft)

	h.send(t, phone, "confirm_no")
	assert.Equal(t, messages.Cancelled, h.out.last(t).body)
	_, err := h.repo.GetActiveByPhone(context.Background(), phone)
	assert.ErrorIs(t, err, conversationRepo.ErrNotFound)

	h.seed(t, phone, models.StepSelectingDate, draft)
	h.send(t, phone, "EXIT")
	assert.Equal(t, messages.Cancelled, h.out.last(t).body)
	_, err = h.repo.GetActiveByPhone(context.Background(), phone)
	assert.ErrorIs(t, err, conversationRepo.ErrNotFound)
}

func TestReplayAfterDiscardIsIgnored(t *testing.T) {
	draft := baseDraft()
	draft.Slots = []string{"09:00 - 10:00"}
	draft.Name = "Asha"

	tests := []struct {
		name  string
		step  models.Step
		input string
	}{
		{name: "confirm_no", step: models.StepConfirmingBooking, input: "confirm_no"},
		{name: "cancel", step: models.StepSelectingDate, input: "cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			const phone = "919800000030"
			h.seed(t, phone, tt.step, draft)

			id := h.send(t, phone, tt.input)
			require.Equal(t, 1, h.out.count())

			h.deliver(t, phone, id, tt.input)
			h.deliver(t, phone, id, tt.input)
			assert.Equal(t, 1, h.out.count())
			_, err := h.repo.GetActiveByPhone(context.Background(), phone)
			assert.ErrorIs(t, err, conversationRepo.ErrNotFound)

			h.send(t, phone, "start")
			assert.Equal(t, 2, h.out.count())
			assert.Equal(t, models.StepSelectingActivity, h.conv(t, phone).Step)
		})
	}
}

func TestReplayWithoutConversationIsIgnored(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000031"

	id := h.send(t, phone, "cancel")
	h.deliver(t, phone, id, "cancel")
	assert.Equal(t, 1, h.out.count())
	assert.Equal(t, messages.Cancelled, h.out.last(t).body)
}

func TestConfirmLosingRaceDiscardsDraft(t *testing.T) {
	h := newHarness(t)
	draft := baseDraft()
	draft.Slots = []string{"09:00 - 10:00"}
	draft.Name = "Asha"
	h.seed(t, "919800000011", models.StepConfirmingBooking, draft)
	h.seed(t, "919800000012", models.StepConfirmingBooking, draft)

	h.send(t, "919800000011", "confirm_yes")
	assert.Equal(t, "link", h.out.last(t).kind)

	h.send(t, "919800000012", "confirm_yes")
	assert.Equal(t, messages.SlotTaken, h.out.last(t).body)
	_, err := h.repo.GetActiveByPhone(context.Background(), "919800000012")
	assert.ErrorIs(t, err, conversationRepo.ErrNotFound)
}

func TestMembershipCommandDoesNotMutate(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000013"
	h.seed(t, phone, models.StepSelectingActivity, models.Draft{})
	before := h.conv(t, phone)

	h.send(t, phone, "Memberships")
	link := h.out.last(t)
	assert.Equal(t, "link", link.kind)
	assert.Equal(t, testCatalog.MembershipURL, link.url)

	h.send(t, phone, "menu_membership")
	assert.Equal(t, "link", h.out.last(t).kind)

	after := h.conv(t, phone)
	assert.Equal(t, models.StepSelectingActivity, after.Step)
	// Only the message-id bookkeeping touched the record.
	assert.Equal(t, before.Version+2, after.Version)
}

func TestRestartArchivesPaidBooking(t *testing.T) {
	h := newHarness(t)
	const phone = "919800000014"
	paid := models.NewConversation(phone, models.StepPaymentPending, time.Now())
	paid.Activity, paid.Location, paid.Date = "pickleball", "main", "2025-11-01"
	paid.TimeSlot = "09:00 - 10:00"
	paid.Slots = []string{"09:00 - 10:00"}
	paid.Held = true
	require.NoError(t, h.repo.Create(context.Background(), paid))
	ok, err := h.repo.MarkPaid(context.Background(), paid.ID)
	require.NoError(t, err)
	require.True(t, ok)

	h.send(t, phone, "thanks")
	assert.Equal(t, promptCompleted, h.out.last(t).body)

	h.send(t, phone, "start")
	fresh := h.conv(t, phone)
	assert.NotEqual(t, paid.ID, fresh.ID)
	assert.Equal(t, models.StepSelectingActivity, fresh.Step)

	archived, err := h.repo.GetByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.True(t, archived.Paid)
	assert.False(t, archived.Active)
}
