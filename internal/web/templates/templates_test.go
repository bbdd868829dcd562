package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		want    []string
		notWant string
	}{
		{"with action", "Try again", []string{`role="alert"`, "<p>Try again</p>", "<small>IMP001</small>"}, ""},
		{"without action", "", []string{"<strong>Busy &amp; full</strong>", "<small>IMP001</small>"}, "<p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderString(t, ErrorAlert("Busy & full", tt.action, "IMP001"))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in %s", w, got)
				}
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("unexpected %q in %s", tt.notWant, got)
			}
		})
	}
}

func TestReviewPage(t *testing.T) {
	v := ReviewView{
		UploadID: "abc",
		Columns:  []string{"name"},
		Lines: []ReviewLine{
			{Line: 2, Values: []string{"<i>Apple</i>"}, ValidatesAs: "new_product"},
			{Line: 3, Values: []string{"Pear"}, Errors: []string{"price: can't be blank"}},
		},
		Classifications: map[string]int{"new_product": 1},
		Invalid:         1,
		ResetCounts:     map[int64]int64{2: 5},
		StageSize:       1,
	}
	got := renderString(t, ReviewPage(v))

	for _, w := range []string{
		"<title>Review import</title>",
		"&lt;i&gt;Apple&lt;/i&gt;",
		`data-outcome="valid"`,
		`data-outcome="invalid"`,
		"<dt>new product</dt><dd>1</dd>",
		"Supplier 2: 5 items",
		`href="/api/imports/abc/review.xlsx"`,
		`data-start="2" data-end="2"`,
		`data-start="3" data-end="3"`,
	} {
		if !strings.Contains(got, w) {
			t.Errorf("page missing %q", w)
		}
	}
}

func TestReviewPage_RangedReviewHasNoSummary(t *testing.T) {
	got := renderString(t, ReviewPage(ReviewView{UploadID: "abc"}))
	if strings.Contains(got, `class="summary"`) || strings.Contains(got, `class="stages"`) {
		t.Errorf("empty review rendered summary or stages: %s", got)
	}
}

func TestUploadPage(t *testing.T) {
	got := renderString(t, UploadPage(50<<20))
	if !strings.Contains(got, "up to 50 MB.") || !strings.Contains(got, `enctype="multipart/form-data"`) {
		t.Errorf("upload page = %s", got)
	}
}
