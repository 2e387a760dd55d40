package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/parser"
	"github.com/vitalvault/importer/pkg/parser/fhir"
	"github.com/vitalvault/importer/pkg/parser/labdoc"
	"github.com/vitalvault/importer/pkg/parser/samsung"
	"github.com/vitalvault/importer/pkg/store"
	"github.com/vitalvault/importer/pkg/terminology"
)

func init() {
	logger.InitQuiet()
}

type capturedEvent struct {
	eventType string
	data      map[string]interface{}
}

type capturingEvents struct {
	events []capturedEvent
}

func (c *capturingEvents) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	c.events = append(c.events, capturedEvent{eventType: eventType, data: data})
	return nil
}

type fakeDocText struct {
	pages []string
	err   error
}

func (f fakeDocText) ExtractText(name string, data []byte) ([]string, error) {
	return f.pages, f.err
}

func newTestOrchestrator(docText DocumentTextExtractor) (*Orchestrator, *store.MemoryStore, *capturingEvents) {
	registry := parser.NewRegistry()
	vendor := samsung.New()
	registry.Register(parser.FormatSamsungExport, vendor)
	registry.Register(parser.FormatGenericCSV, vendor)
	registry.Register(parser.FormatClinicalBundle, fhir.New(terminology.DefaultCatalog()))
	registry.Register(parser.FormatLabDocument, labdoc.New())

	st := store.NewMemoryStore()
	events := &capturingEvents{}
	orch := New(Options{
		Registry: registry,
		Store:    st,
		Archives: ZipExtractor{MaxEntries: 100},
		DocText:  docText,
		Events:   events,
	})
	return orch, st, events
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSamsungArchiveImport(t *testing.T) {
	orch, st, events := newTestOrchestrator(nil)

	archive := buildZip(t, map[string]string{
		"com.samsung.health.sleep.csv": "start_time,end_time,sleep_duration\n" +
			"2024-03-01 23:00:00,2024-03-02 07:00:00,28800000\n" +
			"2024-03-02 23:30:00,2024-03-03 06:30:00,25200000\n" +
			"2024-03-03 22:45:00,2024-03-04 06:45:00,28800000\n",
		"com.samsung.health.step_count.csv": "day,step_count\n" +
			"2024-03-02,8412\n" +
			"2024-03-03,10233\n",
	})

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "samsunghealth_export.zip", Data: archive},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalRecords)
	assert.Equal(t, 1, summary.FilesImported)
	assert.Equal(t, 0, summary.FilesFailed)
	assert.Equal(t, 3, summary.RecordsByTarget[models.CategorySleep])
	assert.Equal(t, 2, summary.RecordsByTarget[models.CategoryActivity])

	require.Len(t, summary.Files, 1)
	pf := summary.Files[0]
	assert.Equal(t, models.StatusCompleted, pf.Status)
	assert.Equal(t, 5, pf.RecordCount)
	assert.Equal(t, string(parser.FormatSamsungExport), pf.Format)

	batches, err := st.ListImports(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 5, batches[0].RecordsImported)
	assert.Equal(t, "samsunghealth_export.zip", batches[0].FileName)

	sleep, err := st.QueryRange(context.Background(), models.CategorySleep, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Len(t, sleep, 3)

	require.Len(t, events.events, 1)
	assert.Equal(t, "import.completed", events.events[0].eventType)
	assert.Equal(t, 5, events.events[0].data["recordCount"])
}

func TestPerFileFailureDoesNotAbortBatch(t *testing.T) {
	orch, st, _ := newTestOrchestrator(nil)

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "notes.txt", Data: []byte("free text")},
		{Name: "meds.csv", Data: []byte("medication_name,dose,date\nLisinopril,10mg,2024-02-11\n")},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesFailed)
	assert.Equal(t, 1, summary.FilesImported)
	assert.Equal(t, 1, summary.TotalRecords)
	assert.Equal(t, 1, summary.RecordsByTarget[models.CategoryMedication])

	require.Len(t, summary.Files, 2)
	assert.Equal(t, models.StatusError, summary.Files[0].Status)
	assert.NotEmpty(t, summary.Files[0].Error)
	assert.Equal(t, models.StatusCompleted, summary.Files[1].Status)

	count, err := st.Count(context.Background(), models.CategoryMedication)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClinicalArchiveRequiresBundle(t *testing.T) {
	orch, st, events := newTestOrchestrator(nil)

	archive := buildZip(t, map[string]string{
		"readme.txt": "nothing clinical here",
	})

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "patient_records.zip", Data: archive},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesFailed)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, models.StatusError, summary.Files[0].Status)
	assert.Contains(t, summary.Files[0].Error, "no clinical bundle")

	batches, err := st.ListImports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Empty(t, events.events)
}

func TestClinicalArchiveRoutedToBundleParser(t *testing.T) {
	orch, st, _ := newTestOrchestrator(nil)

	bundle := `{"resourceType":"Bundle","entry":[{"resource":{` +
		`"resourceType":"Observation",` +
		`"code":{"coding":[{"code":"29463-7","display":"Body Weight"}]},` +
		`"valueQuantity":{"value":72.5,"unit":"kg"},` +
		`"effectiveDateTime":"2024-04-02"}}]}`
	archive := buildZip(t, map[string]string{
		"export/bundle.json": bundle,
	})

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "allpatientdata.zip", Data: archive},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.FilesFailed)
	assert.Equal(t, 1, summary.RecordsByTarget[models.CategoryVital])
	require.Len(t, summary.Files, 1)
	assert.Equal(t, string(parser.FormatClinicalBundle), summary.Files[0].Format)

	vitals, err := st.QueryRange(context.Background(), models.CategoryVital, "2024-04-01", "2024-04-30")
	require.NoError(t, err)
	require.Len(t, vitals, 1)
	assert.Equal(t, models.TypeWeight, vitals[0].Vital.Type)
}

func TestLabDocumentUsesTextExtractor(t *testing.T) {
	orch, st, _ := newTestOrchestrator(fakeDocText{
		pages: []string{"Collected 03/15/2024", "Glucose: 98 mg/dL"},
	})

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "lab_report.pdf", Data: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.FilesFailed)
	assert.Equal(t, 1, summary.RecordsByTarget[models.CategoryLab])

	labs, err := st.QueryRange(context.Background(), models.CategoryLab, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, "glucose", labs[0].Lab.TestType)
	assert.Equal(t, models.SourceDocumentExtract, labs[0].Source)
}

func TestLabDocumentWithoutExtractorFails(t *testing.T) {
	orch, _, _ := newTestOrchestrator(nil)

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "lab_report.pdf", Data: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesFailed)
	require.Len(t, summary.Files, 1)
	assert.Contains(t, summary.Files[0].Error, "lab_report.pdf")
}

func TestEmptyFileEndsInWarning(t *testing.T) {
	orch, st, events := newTestOrchestrator(nil)

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "weight.csv", Data: []byte("date,weight\n")},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalRecords)
	assert.Equal(t, 1, summary.FilesImported)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, models.StatusWarning, summary.Files[0].Status)

	batches, err := st.ListImports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Empty(t, events.events)
}

func TestRecordsStampedAndBackfilled(t *testing.T) {
	orch, st, _ := newTestOrchestrator(nil)

	_, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "meds.csv", Data: []byte("medication_name,dose\nMetformin,500mg\n")},
	})
	require.NoError(t, err)

	meds, err := st.QueryRange(context.Background(), models.CategoryMedication, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.NotEmpty(t, meds[0].ImportDate)
	assert.NotEmpty(t, meds[0].Date)
	assert.NoError(t, meds[0].Validate())
}

func TestSessionStatusNeverRegresses(t *testing.T) {
	session := NewSession()
	id := session.Begin("a.csv")
	session.Fail(id, "boom")
	session.Complete(id, 10)

	pf, ok := session.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusError, pf.Status)
	assert.Equal(t, "boom", pf.Error)
}

func TestSessionResetClearsFiles(t *testing.T) {
	orch, _, _ := newTestOrchestrator(nil)

	_, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "notes.txt", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.Len(t, orch.Session().Files(), 1)

	orch.Session().Reset()
	assert.Empty(t, orch.Session().Files())
}

func TestUnsupportedUploadError(t *testing.T) {
	orch, _, _ := newTestOrchestrator(nil)

	summary, err := orch.ProcessFiles(context.Background(), []UploadedFile{
		{Name: "photo.png", Data: []byte{0x89}},
	})
	require.NoError(t, err)

	require.Len(t, summary.Files, 1)
	assert.Equal(t, models.StatusError, summary.Files[0].Status)
	assert.Contains(t, summary.Files[0].Error, "unsupported file format")
	assert.Contains(t, summary.Files[0].Error, "photo.png")
}
