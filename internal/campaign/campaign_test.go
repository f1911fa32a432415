package campaign

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/pkg/instantly"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGate struct {
	keys []string
}

func (g *fakeGate) Acquire(_ context.Context, key string) (time.Time, error) {
	g.keys = append(g.keys, key)
	return time.Now(), nil
}

type fakeInstantly struct {
	created  []instantly.CreateCampaignRequest
	leads    map[string][]instantly.Lead
	nextID   int
	lastID   string
	addCalls int
}

func newFakeInstantly() *fakeInstantly {
	return &fakeInstantly{leads: make(map[string][]instantly.Lead)}
}

func (f *fakeInstantly) CreateCampaign(_ context.Context, req instantly.CreateCampaignRequest) (*instantly.Campaign, error) {
	f.created = append(f.created, req)
	f.nextID++
	f.lastID = "camp-" + string(rune('0'+f.nextID))
	return &instantly.Campaign{ID: f.lastID, Name: req.Name, Status: "draft"}, nil
}

func (f *fakeInstantly) AddLeads(_ context.Context, campaignID string, leads []instantly.Lead) (*instantly.AddLeadsResult, error) {
	f.addCalls++
	f.leads[campaignID] = append(f.leads[campaignID], leads...)
	return &instantly.AddLeadsResult{AddedCount: len(leads)}, nil
}

func (f *fakeInstantly) GetCampaign(_ context.Context, campaignID string) (*instantly.Campaign, error) {
	return &instantly.Campaign{ID: campaignID, Status: "draft"}, nil
}

type memRecords struct {
	recs map[string]model.CampaignRecord
}

func newMemRecords() *memRecords {
	return &memRecords{recs: make(map[string]model.CampaignRecord)}
}

func (m *memRecords) CampaignRecord(_ context.Context, batchID, company string) (*model.CampaignRecord, bool, error) {
	rec, ok := m.recs[batchID+"/"+company]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (m *memRecords) SaveCampaignRecord(_ context.Context, rec model.CampaignRecord) error {
	m.recs[rec.BatchID+"/"+rec.Company] = rec
	return nil
}

func testCompany() *model.Company {
	return &model.Company{
		Name: "Acme Corp",
		Key:  "acme corp",
		Jobs: []model.JobPosting{{Title: "Staff Engineer", Company: "Acme Corp"}},
	}
}

func TestDispatchCreatesCampaignAndEnrolls(t *testing.T) {
	client := newFakeInstantly()
	records := newMemRecords()
	d := New(client, records, &fakeGate{}, DefaultTemplate(), []string{"jane.doe@agency.com"})

	contacts := []model.Contact{
		{Email: "ceo@acme.com", FirstName: "Pat", LastName: "Kim", Title: "CEO"},
		{FirstName: "No", LastName: "Email", Title: "VP"},
	}
	rec, err := d.Dispatch(context.Background(), "batch-1234567890", testCompany(), contacts)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Len(t, client.created, 1)
	assert.Equal(t, "Re: Staff Engineer Position at Acme Corp", client.created[0].SubjectLine)
	assert.Equal(t, "jane.doe@agency.com", client.created[0].SenderEmail)
	assert.Contains(t, client.created[0].MessageTemplate, "{{first_name}}", "per-lead placeholder survives rendering")
	assert.Contains(t, client.created[0].MessageTemplate, "Jane Doe")
	assert.Equal(t, "Outreach - Acme Corp - batch-12", client.created[0].Name)

	require.Len(t, client.leads[rec.CampaignID], 1, "contact without email is not enrolled")
	assert.Equal(t, "ceo@acme.com", client.leads[rec.CampaignID][0].Email)
	assert.Equal(t, "Staff Engineer", client.leads[rec.CampaignID][0].CustomFields["open_role"])
	assert.Equal(t, []string{"ceo@acme.com"}, rec.EnrolledEmails)
}

func TestDispatchIsIdempotent(t *testing.T) {
	client := newFakeInstantly()
	records := newMemRecords()
	d := New(client, records, &fakeGate{}, DefaultTemplate(), nil)

	contacts := []model.Contact{{Email: "ceo@acme.com", FirstName: "Pat"}}
	first, err := d.Dispatch(context.Background(), "b1", testCompany(), contacts)
	require.NoError(t, err)

	// Second dispatch adds one new address, re-uses the campaign, and does
	// not re-enroll the first one.
	contacts = append(contacts, model.Contact{Email: "cto@acme.com", FirstName: "Sam"})
	second, err := d.Dispatch(context.Background(), "b1", testCompany(), contacts)
	require.NoError(t, err)

	assert.Len(t, client.created, 1, "campaign created once")
	assert.Equal(t, first.CampaignID, second.CampaignID)
	require.Len(t, client.leads[first.CampaignID], 2)
	assert.Equal(t, "cto@acme.com", client.leads[first.CampaignID][1].Email)
	assert.ElementsMatch(t, []string{"ceo@acme.com", "cto@acme.com"}, second.EnrolledEmails)
}

func TestDispatchAllEnrolledSkipsProvider(t *testing.T) {
	client := newFakeInstantly()
	records := newMemRecords()
	d := New(client, records, &fakeGate{}, DefaultTemplate(), nil)

	contacts := []model.Contact{{Email: "ceo@acme.com"}}
	_, err := d.Dispatch(context.Background(), "b1", testCompany(), contacts)
	require.NoError(t, err)
	require.Equal(t, 1, client.addCalls)

	_, err = d.Dispatch(context.Background(), "b1", testCompany(), contacts)
	require.NoError(t, err)
	assert.Equal(t, 1, client.addCalls, "nothing new to enroll")
}

func TestDispatchNoEnrollableContacts(t *testing.T) {
	client := newFakeInstantly()
	gate := &fakeGate{}
	d := New(client, newMemRecords(), gate, DefaultTemplate(), nil)

	rec, err := d.Dispatch(context.Background(), "b1", testCompany(), []model.Contact{{FirstName: "No", LastName: "Email"}})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, gate.keys, "no provider calls without enrollable contacts")
	assert.Empty(t, client.created)
}

func TestDispatchRotatesSenders(t *testing.T) {
	client := newFakeInstantly()
	d := New(client, newMemRecords(), &fakeGate{}, DefaultTemplate(), []string{"a@x.com", "b@x.com"})

	contacts := []model.Contact{{Email: "ceo@acme.com"}}
	_, err := d.Dispatch(context.Background(), "b1", testCompany(), contacts)
	require.NoError(t, err)
	other := testCompany()
	other.Name = "Globex"
	other.Key = "globex"
	_, err = d.Dispatch(context.Background(), "b1", other, []model.Contact{{Email: "ceo@globex.com"}})
	require.NoError(t, err)

	require.Len(t, client.created, 2)
	assert.Equal(t, "a@x.com", client.created[0].SenderEmail)
	assert.Equal(t, "b@x.com", client.created[1].SenderEmail)
}

func TestLoadTemplateDefault(t *testing.T) {
	tmpl, err := LoadTemplate("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate().Subject, tmpl.Subject)
}

func TestLoadTemplateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmpl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subject: \"Hello {{company}}\"\n"), 0o644))

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello {{company}}", tmpl.Subject)
	assert.Equal(t, DefaultTemplate().Body, tmpl.Body, "missing fields fall back to the default")
}

func TestLoadTemplateMissingFile(t *testing.T) {
	_, err := LoadTemplate("/nonexistent/tmpl.yaml")
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	subject, body := DefaultTemplate().Render(map[string]string{
		"company":     "Acme",
		"job_title":   "Staff Engineer",
		"first_name":  "Pat",
		"sender_name": "Jane Doe",
	})
	assert.Equal(t, "Re: Staff Engineer Position at Acme", subject)
	assert.Contains(t, body, "Hi Pat,")
	assert.Contains(t, body, "Jane Doe")
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Jane Doe", senderName("jane.doe@agency.com"))
	assert.Equal(t, "Sam", senderName("sam@agency.com"))
	assert.Empty(t, senderName("not-an-email"))
}
