package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mondaydownloader/models"
)

var testNow = time.UnixMilli(1715300000000)

func newTestAttachmentService(api *fakeAPI, store FileSaver) *AttachmentService {
	s := NewAttachmentService(api, store)
	s.now = func() time.Time { return testNow }
	return s
}

func TestFetchAll_PublicThenAuthFallback(t *testing.T) {
	api := newFakeAPI()
	api.assets[10] = []models.Asset{
		{ID: "a1", Name: "order.pdf", URL: "https://cdn/a1"},
		{ID: "a2", Name: "scan", URL: "null", Extension: "png"},
		{ID: "a3", Name: "broken.txt", URL: "https://cdn/expired"},
		{ID: "", Name: "orphan.txt"},
	}
	api.publicFiles["https://cdn/a1"] = []byte("pdf")
	api.authFiles["auth://a2"] = []byte("png")
	api.authFiles["auth://a3"] = []byte("txt")
	store := newFakeStore()

	saved, err := newTestAttachmentService(api, store).FetchAll(context.Background(), 10, "/out/west", "ops@example.com", "West")
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	assert.ElementsMatch(t, []string{
		"order__10__ops@example.com__West.pdf",
		"scan__10__ops@example.com__West.png",
		"broken__10__ops@example.com__West.txt",
	}, store.names())

	// "null" の公開URLは試さない
	assert.Equal(t, []string{"https://cdn/a1", "auth://a2", "https://cdn/expired", "auth://a3"}, api.downloads)
}

func TestFetchAll_AssetFailuresAreSkipped(t *testing.T) {
	api := newFakeAPI()
	api.assets[10] = []models.Asset{
		{ID: "a1", Name: "gone.pdf", URL: "https://cdn/gone"},
		{ID: "a2", Name: "ok.pdf", URL: ""},
	}
	api.authFiles["auth://a2"] = []byte("ok")
	store := newFakeStore()

	saved, err := newTestAttachmentService(api, store).FetchAll(context.Background(), 10, "/out", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.Equal(t, []string{"ok__10__noemail__nogroup.pdf"}, store.names())
}

func TestFetchAll_SaveErrorIsSkipped(t *testing.T) {
	api := newFakeAPI()
	api.assets[10] = []models.Asset{{ID: "a1", Name: "a.pdf", URL: "https://cdn/a1"}}
	api.publicFiles["https://cdn/a1"] = []byte("x")
	store := newFakeStore()
	store.err = errors.New("disk full")

	saved, err := newTestAttachmentService(api, store).FetchAll(context.Background(), 10, "/out", "", "West")
	require.NoError(t, err)
	assert.Zero(t, saved)
}

func TestFetchAll_NoAssets(t *testing.T) {
	api := newFakeAPI()
	saved, err := newTestAttachmentService(api, newFakeStore()).FetchAll(context.Background(), 10, "/out", "", "West")
	require.NoError(t, err)
	assert.Zero(t, saved)
}

func TestFetchAll_ItemMissing(t *testing.T) {
	api := newFakeAPI()
	api.missing[10] = true

	saved, err := newTestAttachmentService(api, newFakeStore()).FetchAll(context.Background(), 10, "/out", "", "West")
	require.NoError(t, err)
	assert.Zero(t, saved)
}

func TestFetchAll_ListingError(t *testing.T) {
	api := newFakeAPI()
	api.assetsErr[10] = errors.New("HTTPエラー 500")

	_, err := newTestAttachmentService(api, newFakeStore()).FetchAll(context.Background(), 10, "/out", "", "West")
	assert.ErrorContains(t, err, "500")
}

func TestBuildAttachmentFileName(t *testing.T) {
	tests := []struct {
		name  string
		asset models.Asset
		email string
		group string
		want  string
	}{
		{
			name:  "拡張子付きの名前",
			asset: models.Asset{Name: "invoice.final.pdf"},
			email: "a@b.com",
			group: "West",
			want:  "invoice.final__5__a@b.com__West.pdf",
		},
		{
			name:  "拡張子を補う",
			asset: models.Asset{Name: "scan", Extension: ".png"},
			want:  "scan__5__noemail__nogroup.png",
		},
		{
			name:  "拡張子なし",
			asset: models.Asset{Name: "README"},
			want:  "README__5__noemail__nogroup",
		},
		{
			name:  "グループ名の記号",
			asset: models.Asset{Name: "a.pdf"},
			group: "NPOP (LA3)/{SOBEYSMIF}",
			want:  "a__5__noemail__NPOP (LA3)_{SOBEYSMIF}.pdf",
		},
		{
			name:  "名前が空",
			asset: models.Asset{Name: "  "},
			want:  "attachment_1715300000000__5__noemail__nogroup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildAttachmentFileName(tt.asset, 5, tt.email, tt.group, testNow))
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f_g_h_i", SanitizeFileName(`a<b>c:d"e|f?g*h\i`, testNow))
	assert.Equal(t, "x_y", SanitizeFileName("  x/y  ", testNow))
	assert.Equal(t, "attachment_1715300000000", SanitizeFileName("   ", testNow))

	for _, name := range []string{`a<b>c:d"e|f?g*h\i/j`, "plain.pdf", "  spaced  ", ""} {
		got := SanitizeFileName(name, testNow)
		assert.NotEmpty(t, got)
		assert.False(t, strings.ContainsAny(got, invalidFileNameChars), got)
		assert.Equal(t, strings.TrimSpace(got), got)
	}
}
