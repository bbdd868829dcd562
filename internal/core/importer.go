package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/logging"
)

// Importer opens import runs against one set of collaborators.
type Importer struct {
	catalog Catalog
	lookups LookupSource
	perms   Permissions
	now     func() time.Time
}

// NewImporter creates an importer.
func NewImporter(catalog Catalog, lookups LookupSource, perms Permissions) *Importer {
	return &Importer{
		catalog: catalog,
		lookups: lookups,
		perms:   perms,
		now:     time.Now,
	}
}

// Source is an uploaded spreadsheet. Name is used for its extension.
type Source struct {
	Name   string
	Reader io.Reader
}

// Run is a single import invocation. It is not safe for concurrent use.
//
// Nothing a Run does returns an error to the caller: file problems become
// top-level errors, row problems become entry errors.
type Run struct {
	id       string
	fileName string
	user     User
	settings *Settings
	started  time.Time
	logger   *slog.Logger

	catalog Catalog
	perms   Permissions

	entries []*Entry
	errors  []string

	data        *SpreadsheetData
	permissions PermissionMaps
	permsLoaded bool
	validator   *EntryValidator
	validated   map[int]bool
	processor   *EntryProcessor
	saved       bool
}

// Open reads src and builds one entry per non-empty data row.
// A nil settings value means no supplier is configured.
func (im *Importer) Open(ctx context.Context, src Source, user User, settings *Settings) *Run {
	if settings == nil {
		settings = &Settings{}
	}
	id := uuid.NewString()
	r := &Run{
		id:        id,
		fileName:  src.Name,
		user:      user,
		settings:  settings,
		started:   im.now(),
		logger:    logging.WithFields(ctx, "import_id", id, "file", src.Name, "user_id", user.ID),
		catalog:   im.catalog,
		perms:     im.perms,
		validated: make(map[int]bool),
	}
	r.processor = NewEntryProcessor(r.catalog, settings, r.logger, r.started, TouchedIDs{})

	if !SupportedExtension(src.Name) {
		r.errors = append(r.errors, ErrUnsupportedFile.Error())
		return r
	}
	rows, err := ReadSpreadsheet(src.Name, src.Reader)
	if err != nil {
		r.addError(err)
		return r
	}

	if len(rows) > 0 {
		header := MakeHeaderIndex(rows[0])
		for i, row := range rows[1:] {
			if isEmptyRow(row) {
				continue
			}
			r.entries = append(r.entries, NewEntry(i+2, ReadAttributes(header, row)))
		}
	}
	r.data = NewSpreadsheetData(r.entries, im.lookups)

	r.logger.Info("import started", "entries", len(r.entries))
	return r
}

// ID identifies the run in logs.
func (r *Run) ID() string { return r.id }

// FileName is the name the file was uploaded with.
func (r *Run) FileName() string { return r.fileName }

// Entries returns every entry in line order.
func (r *Run) Entries() []*Entry { return r.entries }

// Errors returns the top-level errors.
func (r *Run) Errors() []string { return r.errors }

func (r *Run) addError(err error) {
	var rie *RecordInvalidError
	switch {
	case errors.Is(err, ErrUnsupportedFile), errors.Is(err, ErrUnreadableFile), errors.As(err, &rie):
		r.errors = append(r.errors, err.Error())
	default:
		r.errors = append(r.errors, FormatUserError(err))
	}
	r.logger.Error("import error", "error", err)
}

func (r *Run) loadPermissions(ctx context.Context) bool {
	if r.permsLoaded {
		return true
	}
	pm, err := LoadPermissions(ctx, r.perms, r.user)
	if err != nil {
		r.addError(err)
		return false
	}
	r.permissions = pm
	r.permsLoaded = true
	return true
}

// ValidateEntries classifies every entry not validated yet.
func (r *Run) ValidateEntries(ctx context.Context) {
	r.validateRange(ctx, 0, 0)
}

func (r *Run) validateRange(ctx context.Context, start, end int) bool {
	if r.data == nil || !r.loadPermissions(ctx) {
		return false
	}
	if r.validator == nil {
		r.validator = NewEntryValidator(r.catalog, r.data, r.permissions, r.settings, r.started)
	}

	n := 0
	for _, e := range r.entries {
		if !e.InRange(start, end) || r.validated[e.LineNumber] {
			continue
		}
		r.validator.Validate(ctx, e)
		r.validated[e.LineNumber] = true
		n++
	}
	if n > 0 {
		r.logger.Info("entries validated", append([]any{"count", n}, r.classificationAttrs()...)...)
	}
	return true
}

func (r *Run) classificationAttrs() []any {
	counts := r.classificationCounts()
	attrs := make([]any, 0, 2*len(classificationNames)+2)
	for _, name := range classificationNames {
		attrs = append(attrs, name, counts[name])
	}
	return append(attrs, "invalid", r.invalidCount())
}

// SaveEntries validates and saves every entry, then resets absent items.
func (r *Run) SaveEntries(ctx context.Context) {
	if r.saved {
		return
	}
	if !r.save(ctx, 0, 0, TouchedIDs{}) {
		r.checkSaved()
		return
	}
	if err := r.processor.ResetAbsentItems(ctx, r.permissions); err != nil {
		r.addError(err)
	}
	r.checkSaved()
}

// SaveEntriesInRange validates and saves the entries on lines start..end.
// touched holds the ids saved by earlier stages; the extended set is
// returned for the next stage. Absent items are not reset.
func (r *Run) SaveEntriesInRange(ctx context.Context, start, end int, touched TouchedIDs) TouchedIDs {
	if r.saved {
		return r.Touched()
	}
	r.save(ctx, start, end, touched)
	r.checkSaved()
	return r.Touched()
}

func (r *Run) save(ctx context.Context, start, end int, touched TouchedIDs) bool {
	r.saved = true
	r.processor = NewEntryProcessor(r.catalog, r.settings, r.logger, r.started, touched)

	if !r.validateRange(ctx, start, end) {
		return false
	}

	var entries []*Entry
	for _, e := range r.entries {
		if e.InRange(start, end) {
			entries = append(entries, e)
		}
	}

	if err := r.processor.CountExistingItems(ctx, entries); err != nil {
		r.addError(err)
	}

	began := time.Now()
	r.processor.SaveEntries(ctx, entries)
	c := r.processor.Counts()
	r.logger.Info("entries saved",
		"products_created", c.ProductsCreated,
		"variants_created", c.VariantsCreated,
		"variants_updated", c.VariantsUpdated,
		"inventory_created", c.InventoryCreated,
		"inventory_updated", c.InventoryUpdated,
		"total_saved", c.TotalSaved(),
		"duration_ms", time.Since(began).Milliseconds(),
	)
	return true
}

// checkSaved adds the aggregate error when no entry saved. A file that
// could not be read already carries its own single error.
func (r *Run) checkSaved() {
	if r.data == nil {
		return
	}
	if r.processor.Counts().TotalSaved() == 0 {
		r.errors = append(r.errors, msgNothingSaved)
	}
}

// ResetAbsent is the final step of a staged import: it resets absent items
// using the ids accumulated by all stages and returns how many were reset.
func (r *Run) ResetAbsent(ctx context.Context, touched TouchedIDs) int64 {
	if !r.loadPermissions(ctx) {
		return 0
	}
	r.processor = NewEntryProcessor(r.catalog, r.settings, r.logger, r.started, touched)
	if err := r.processor.resetAbsent(ctx, r.permissions); err != nil {
		r.addError(err)
	}
	return r.processor.Counts().ProductsReset
}

// ====================================================================
// Reporting
// ====================================================================

// LineReview is the review data of one entry.
type LineReview struct {
	Attributes  map[string]string `json:"attributes"`
	ValidatesAs string            `json:"validates_as"`
	Errors      map[string]string `json:"errors"`
}

// Review validates if needed and returns review data for every line.
func (r *Run) Review(ctx context.Context) map[int]LineReview {
	return r.ReviewRange(ctx, 0, 0)
}

// ReviewRange returns review data for lines start..end. Zero bounds are open.
func (r *Run) ReviewRange(ctx context.Context, start, end int) map[int]LineReview {
	r.validateRange(ctx, start, end)

	out := make(map[int]LineReview)
	for _, e := range r.entries {
		if !e.InRange(start, end) {
			continue
		}
		out[e.LineNumber] = LineReview{
			Attributes:  e.Attrs.Map(),
			ValidatesAs: e.ValidatesAs(),
			Errors:      e.ErrorMap(),
		}
	}
	return out
}

// ResultCounts is the counter block of SaveResults.
type ResultCounts struct {
	ProductsCreated  int   `json:"products_created"`
	ProductsUpdated  int   `json:"products_updated"`
	InventoryCreated int   `json:"inventory_created"`
	InventoryUpdated int   `json:"inventory_updated"`
	ProductsReset    int64 `json:"products_reset"`
}

// SaveResults is what a caller receives after saving. UpdatedIDs lists
// every touched id; Touched splits them by target and is what a staged
// import passes on to its next stage.
type SaveResults struct {
	Results    ResultCounts `json:"results"`
	UpdatedIDs []int64      `json:"updated_ids"`
	Touched    TouchedIDs   `json:"touched_ids"`
	Errors     []string     `json:"errors"`
}

// add folds the counts and errors of another stage into res.
func (res *SaveResults) add(o SaveResults) {
	res.Results.ProductsCreated += o.Results.ProductsCreated
	res.Results.ProductsUpdated += o.Results.ProductsUpdated
	res.Results.InventoryCreated += o.Results.InventoryCreated
	res.Results.InventoryUpdated += o.Results.InventoryUpdated
	res.Results.ProductsReset += o.Results.ProductsReset
	for _, e := range o.Errors {
		if !slices.Contains(res.Errors, e) {
			res.Errors = append(res.Errors, e)
		}
	}
}

// settle drops the nothing-saved error when some stage saved entries.
func (res *SaveResults) settle() {
	c := res.Results
	if c.ProductsCreated+c.ProductsUpdated+c.InventoryCreated+c.InventoryUpdated > 0 {
		res.Errors = slices.DeleteFunc(res.Errors, func(e string) bool { return e == msgNothingSaved })
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.UpdatedIDs == nil {
		res.UpdatedIDs = []int64{}
	}
	res.Touched = res.Touched.orEmpty()
}

// ProductsCreatedCount counts new products and new variants.
func (r *Run) ProductsCreatedCount() int {
	c := r.processor.Counts()
	return c.ProductsCreated + c.VariantsCreated
}

func (r *Run) ProductsUpdatedCount() int  { return r.processor.Counts().VariantsUpdated }
func (r *Run) InventoryCreatedCount() int { return r.processor.Counts().InventoryCreated }
func (r *Run) InventoryUpdatedCount() int { return r.processor.Counts().InventoryUpdated }
func (r *Run) ProductsResetCount() int64  { return r.processor.Counts().ProductsReset }
func (r *Run) TotalSavedCount() int       { return r.processor.Counts().TotalSaved() }

// Counts returns the raw persistence counters.
func (r *Run) Counts() Counts { return r.processor.Counts() }

// UpdatedIDs returns the ids touched so far, including those passed in.
func (r *Run) UpdatedIDs() []int64 {
	ids := r.processor.UpdatedIDs()
	if ids == nil {
		return []int64{}
	}
	return ids
}

// Touched returns the touched ids split by target.
func (r *Run) Touched() TouchedIDs {
	return r.processor.Touched().orEmpty()
}

// SaveResults bundles the counts, touched ids and top-level errors.
func (r *Run) SaveResults() SaveResults {
	errs := r.errors
	if errs == nil {
		errs = []string{}
	}
	return SaveResults{
		Results: ResultCounts{
			ProductsCreated:  r.ProductsCreatedCount(),
			ProductsUpdated:  r.ProductsUpdatedCount(),
			InventoryCreated: r.InventoryCreatedCount(),
			InventoryUpdated: r.InventoryUpdatedCount(),
			ProductsReset:    r.ProductsResetCount(),
		},
		UpdatedIDs: r.UpdatedIDs(),
		Touched:    r.Touched(),
		Errors:     errs,
	}
}

// ExistingItemCounts returns, per supplier in the file, how many items it
// held in its import target before anything was saved.
func (r *Run) ExistingItemCounts(ctx context.Context) map[int64]int64 {
	r.ValidateEntries(ctx)
	if err := r.processor.CountExistingItems(ctx, r.entries); err != nil {
		r.addError(err)
	}
	return r.processor.ExistingCounts()
}

// ReviewSummary aggregates a validated run for the review screen.
type ReviewSummary struct {
	Entries         int             `json:"entries"`
	Classifications map[string]int  `json:"classifications"`
	Invalid         int             `json:"invalid"`
	ResetCounts     map[int64]int64 `json:"reset_counts"`
}

// ReviewSummary counts entries per outcome and, for suppliers opted into
// reset_all_absent, how many existing items the file does not mention.
func (r *Run) ReviewSummary(ctx context.Context) ReviewSummary {
	existing := r.ExistingItemCounts(ctx)

	s := ReviewSummary{
		Entries:         len(r.entries),
		Classifications: r.classificationCounts(),
		Invalid:         r.invalidCount(),
		ResetCounts:     make(map[int64]int64),
	}

	mentioned := make(map[int64]map[int64]bool)
	for _, e := range r.entries {
		var id int64
		switch c := e.Classification().(type) {
		case ExistingVariant:
			id = c.Variant.ID
		case ExistingInventoryItem:
			id = c.Override.ID
		default:
			continue
		}
		if mentioned[e.SupplierID] == nil {
			mentioned[e.SupplierID] = make(map[int64]bool)
		}
		mentioned[e.SupplierID][id] = true
	}

	for _, ids := range resetTargets(r.settings, r.permissions) {
		for _, sid := range ids {
			n := existing[sid] - int64(len(mentioned[sid]))
			if n < 0 {
				n = 0
			}
			s.ResetCounts[sid] = n
		}
	}
	return s
}

func (r *Run) classificationCounts() map[string]int {
	counts := make(map[string]int, len(classificationNames))
	for _, name := range classificationNames {
		counts[name] = 0
	}
	for _, e := range r.entries {
		if c := e.Classification(); c != nil {
			counts[c.ValidatesAs()]++
		}
	}
	return counts
}

func (r *Run) invalidCount() int {
	n := 0
	for _, e := range r.entries {
		if r.validated[e.LineNumber] && e.Classification() == nil {
			n++
		}
	}
	return n
}
