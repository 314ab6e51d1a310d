package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

type commandFixture struct {
	svc      *CommandService
	probe    *stubProbe
	gateway  *stubGateway
	store    *DocumentStore
	outbox   *Outbox
	notifier *recordingNotifier
}

func newCommandFixture(connected bool, docs ...models.StatutoryDocument) *commandFixture {
	f := &commandFixture{
		probe:    newStubProbe(connected),
		gateway:  &stubGateway{},
		store:    NewDocumentStore(),
		notifier: &recordingNotifier{},
	}
	f.store.Replace(models.DocumentSnapshot{StationID: "ST-001", Documents: docs})
	f.outbox = NewOutbox(nil)
	f.outbox.now = fixedClock
	f.svc = NewCommandService(CommandParams{
		Probe:      f.probe,
		Gateway:    f.gateway,
		Store:      f.store,
		Calculator: NewLifecycleCalculator(fixedClock, time.UTC),
		Outbox:     f.outbox,
		Notifier:   f.notifier,
		Identity:   stubIdentity{name: "Station Manager"},
	})
	f.svc.now = fixedClock
	return f
}

func threeDocuments() []models.StatutoryDocument {
	return []models.StatutoryDocument{
		stationDocument(1, "ST-001", models.DocumentTypeBusinessLicense, "Business License", 200),
		stationDocument(2, "ST-001", models.DocumentTypeFireSafetyCertificate, "Fire Safety Certificate", 15),
		stationDocument(3, "ST-001", models.DocumentTypeEnvironmentalPermit, "Environmental Permit", -1),
	}
}

func newDocumentInput(title string, days int) models.DocumentInput {
	today := models.NewDate(fixedNow)
	return models.DocumentInput{
		Type:          models.DocumentTypeHealthPermit,
		Title:         title,
		Authority:     "Health Department",
		Reference:     "HP-2026-17",
		IssuedDate:    today,
		ExpiresDate:   today.AddDays(days),
		Fees:          250,
		PaymentStatus: models.PaymentPending,
		StationID:     "ST-001",
		StationName:   "Station ST-001",
	}
}

func TestCommandServiceSingleFlight(t *testing.T) {
	f := newCommandFixture(true, threeDocuments()...)
	f.gateway.entered = make(chan struct{})
	f.gateway.release = make(chan struct{})

	done := make(chan bool)
	go func() {
		done <- f.svc.Create(context.Background(), newDocumentInput("Health Permit", 100))
	}()
	<-f.gateway.entered

	assert.True(t, f.svc.Busy())
	assert.False(t, f.svc.Update(context.Background(), 1, newDocumentInput("ignored", 10)))
	assert.False(t, f.svc.Delete(context.Background(), 2))

	close(f.gateway.release)
	assert.True(t, <-done)
	assert.False(t, f.svc.Busy())
	assert.Equal(t, []string{"create"}, f.gateway.callLog())
	assert.Len(t, f.store.Documents(), 4)
}

func TestCommandServiceOfflineCreateAssignsMonotonicIDs(t *testing.T) {
	f := newCommandFixture(false, threeDocuments()...)
	ctx := context.Background()

	require.True(t, f.svc.Create(ctx, newDocumentInput("Health Permit", 100)))
	created, ok := f.store.Get(4)
	require.True(t, ok)
	assert.True(t, created.LocalOnly)
	assert.Equal(t, "Station Manager", created.CreatedBy)
	assert.Equal(t, 100, created.DaysRemaining)
	assert.Equal(t, models.StatusCompliant, created.Status)
	assert.Equal(t, 1, f.outbox.Len())

	require.True(t, f.svc.Delete(ctx, 4))
	assert.Equal(t, 0, f.outbox.Len(), "deleting an unsynced document drops its create")

	require.True(t, f.svc.Create(ctx, newDocumentInput("Tax Certificate", 20)))
	_, reused := f.store.Get(4)
	assert.False(t, reused)
	second, ok := f.store.Get(5)
	require.True(t, ok)
	assert.Equal(t, models.StatusExpiringSoon, second.Status)
	assert.Empty(t, f.gateway.callLog())

	for _, n := range f.notifier.all() {
		assert.Equal(t, NotificationSuccess, n.level)
		assert.True(t, n.mockMode)
	}
}

func TestCommandServiceOfflineRenew(t *testing.T) {
	doc := stationDocument(7, "ST-001", models.DocumentTypeFuelRetailLicense, "Fuel Retail License", 12)
	doc.Fees = 800
	doc.PaymentStatus = models.PaymentPending
	doc.Status = models.StatusExpiringSoon
	f := newCommandFixture(false, doc)

	newExpiry := models.NewDate(fixedNow).AddDays(365)
	ok := f.svc.Renew(context.Background(), 7, models.RenewDocumentInput{NewExpiresDate: newExpiry, RenewalFees: 880})
	require.True(t, ok)

	renewed, found := f.store.Get(7)
	require.True(t, found)
	assert.Equal(t, newExpiry, renewed.ExpiresDate)
	assert.Equal(t, 880.0, renewed.Fees)
	assert.Equal(t, models.PaymentPaid, renewed.PaymentStatus)
	assert.Equal(t, models.StatusCompliant, renewed.Status)
	assert.Equal(t, 365, renewed.DaysRemaining)
	require.NotNil(t, renewed.UpdatedBy)
	assert.Equal(t, "Station Manager", *renewed.UpdatedBy)
	assert.Equal(t, int64(2), renewed.Revision)

	pending := f.outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, models.MutationRenew, pending[0].Kind)
	require.NotNil(t, pending[0].Renewal)
	assert.Equal(t, 880.0, pending[0].Renewal.RenewalFees)
}

func TestCommandServiceOfflineRenewForcesCompliant(t *testing.T) {
	f := newCommandFixture(false, threeDocuments()...)

	pastExpiry := models.NewDate(fixedNow).AddDays(-10)
	require.True(t, f.svc.Renew(context.Background(), 3, models.RenewDocumentInput{NewExpiresDate: pastExpiry, RenewalFees: 90}))

	renewed, _ := f.store.Get(3)
	assert.Equal(t, models.StatusCompliant, renewed.Status)
	assert.Equal(t, -10, renewed.DaysRemaining)
}

func TestCommandServiceOfflineUpdateRecomputesLifecycle(t *testing.T) {
	f := newCommandFixture(false, threeDocuments()...)

	input := models.InputFromDocument(threeDocuments()[0])
	input.ExpiresDate = models.NewDate(fixedNow).AddDays(5)
	require.True(t, f.svc.Update(context.Background(), 1, input))

	updated, _ := f.store.Get(1)
	assert.Equal(t, 5, updated.DaysRemaining)
	assert.Equal(t, models.StatusExpiringSoon, updated.Status)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, fixedNow, *updated.UpdatedAt)
	assert.Equal(t, 1, f.outbox.Len())
}

func TestCommandServiceOnlineFailureLeavesStoreUntouched(t *testing.T) {
	f := newCommandFixture(true, threeDocuments()...)
	f.gateway.updateErr = errors.New("retries exhausted after 3 attempts")
	before := f.store.Documents()

	input := models.InputFromDocument(before[1])
	input.Title = "Renamed"
	ok := f.svc.Update(context.Background(), 2, input)

	assert.False(t, ok)
	assert.Equal(t, before, f.store.Documents())
	assert.Equal(t, 0, f.outbox.Len())

	lastErr := f.store.LastError()
	require.NotNil(t, lastErr)
	assert.Equal(t, models.ErrorCodeUpdateFailed, lastErr.Code)
	require.NotNil(t, lastErr.DocumentID)
	assert.Equal(t, int64(2), *lastErr.DocumentID)

	notes := f.notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, NotificationError, notes[0].level)
	assert.False(t, notes[0].mockMode)
}

func TestCommandServiceOnlineMutationsMergeIntoStore(t *testing.T) {
	f := newCommandFixture(true, threeDocuments()...)
	ctx := context.Background()

	require.True(t, f.svc.Create(ctx, newDocumentInput("Health Permit", 100)))
	_, ok := f.store.Get(9001)
	assert.True(t, ok)

	renewal := models.RenewDocumentInput{NewExpiresDate: models.NewDate(fixedNow).AddDays(400), RenewalFees: 60}
	require.True(t, f.svc.Renew(ctx, 2, renewal))
	renewed, _ := f.store.Get(2)
	assert.Equal(t, 60.0, renewed.Fees)

	require.True(t, f.svc.Delete(ctx, 3))
	_, ok = f.store.Get(3)
	assert.False(t, ok)

	assert.Equal(t, []string{"create", "renew:2", "delete:3"}, f.gateway.callLog())
	assert.Equal(t, 0, f.outbox.Len())
	assert.Nil(t, f.store.LastError())
}

func TestCommandServiceOnlineDeleteFailureRecordsDocument(t *testing.T) {
	f := newCommandFixture(true, threeDocuments()...)
	f.gateway.deleteErr = errors.New("authority rejected delete")

	assert.False(t, f.svc.Delete(context.Background(), 1))
	_, ok := f.store.Get(1)
	assert.True(t, ok)

	lastErr := f.store.LastError()
	require.NotNil(t, lastErr)
	assert.Equal(t, models.ErrorCodeDeleteFailed, lastErr.Code)
	assert.Equal(t, int64(1), *lastErr.DocumentID)
}

// newFilteredCommandFixture holds only the Business License in the store view, as after an
// offline fetch searching for "business", while the local dataset keeps all three documents.
func newFilteredCommandFixture() (*commandFixture, *stubLocal) {
	local := &stubLocal{docs: map[string][]models.StatutoryDocument{"ST-001": threeDocuments()}}
	f := newCommandFixture(false, threeDocuments()[0])
	f.svc = NewCommandService(CommandParams{
		Probe:      f.probe,
		Gateway:    f.gateway,
		Local:      local,
		Store:      f.store,
		Calculator: NewLifecycleCalculator(fixedClock, time.UTC),
		Outbox:     f.outbox,
		Notifier:   f.notifier,
		Identity:   stubIdentity{name: "Station Manager"},
	})
	f.svc.now = fixedClock
	return f, local
}

func TestCommandServiceOfflineCreateSkipsHiddenIDs(t *testing.T) {
	f, local := newFilteredCommandFixture()

	require.True(t, f.svc.Create(context.Background(), newDocumentInput("Health Permit", 100)))

	pending := f.outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, int64(4), pending[0].DocumentID)

	view := f.outbox.Overlay("ST-001", local.docs["ST-001"])
	titles := make(map[int64]string, len(view))
	for _, doc := range view {
		_, dup := titles[doc.ID]
		assert.False(t, dup, "document id %d appears twice", doc.ID)
		titles[doc.ID] = doc.Title
	}
	assert.Equal(t, "Fire Safety Certificate", titles[2])
	assert.Equal(t, "Environmental Permit", titles[3])
	assert.Equal(t, "Health Permit", titles[4])
}

func TestCommandServiceOfflineMutationsReachHiddenDocuments(t *testing.T) {
	f, local := newFilteredCommandFixture()
	ctx := context.Background()

	input := models.InputFromDocument(threeDocuments()[1])
	input.Title = "Fire Safety Certificate (inspected)"
	require.True(t, f.svc.Update(ctx, 2, input))

	newExpiry := models.NewDate(fixedNow).AddDays(365)
	require.True(t, f.svc.Renew(ctx, 3, models.RenewDocumentInput{NewExpiresDate: newExpiry, RenewalFees: 90}))

	pending := f.outbox.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, models.MutationUpdate, pending[0].Kind)
	assert.Equal(t, int64(2), pending[0].DocumentID)
	assert.Equal(t, models.MutationRenew, pending[1].Kind)
	assert.Equal(t, int64(3), pending[1].DocumentID)

	view := f.outbox.Overlay("ST-001", local.docs["ST-001"])
	require.Len(t, view, 3)
	assert.Equal(t, "Fire Safety Certificate (inspected)", view[1].Title)
	assert.Equal(t, newExpiry, view[2].ExpiresDate)
	assert.Equal(t, models.StatusCompliant, view[2].Status)
	assert.Len(t, f.store.Documents(), 1, "the filtered view is left as fetched")

	require.True(t, f.svc.Delete(ctx, 2))
	assert.Len(t, f.outbox.Overlay("ST-001", local.docs["ST-001"]), 2)
}

func TestCommandServiceOfflineUpdateOfUnknownDocumentRecordsNothing(t *testing.T) {
	f, _ := newFilteredCommandFixture()

	require.True(t, f.svc.Update(context.Background(), 99, newDocumentInput("Ghost", 10)))
	assert.Equal(t, 0, f.outbox.Len())
}
