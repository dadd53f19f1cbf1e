package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashlab/src/app/mock"
)

func TestDecimalDegrees(t *testing.T) {
	t.Run("Paris", func(t *testing.T) {
		assert.InDelta(t, 48.85, DecimalDegrees(48, 51, 0, "N"), 1e-9)
		assert.InDelta(t, 2.35, DecimalDegrees(2, 21, 0, "E"), 1e-9)
	})

	t.Run("SouthWestFlipSign", func(t *testing.T) {
		assert.InDelta(t, -33.8688, DecimalDegrees(33, 52, 7.68, "S"), 1e-4)
		assert.InDelta(t, -70.6693, DecimalDegrees(70, 40, 9.48, "W"), 1e-4)
	})

	t.Run("SecondsContribute", func(t *testing.T) {
		assert.InDelta(t, 10.0+30.0/3600, DecimalDegrees(10, 0, 30, "N"), 1e-9)
	})
}

// gpsExifTIFF builds a minimal little-endian EXIF blob with a GPS sub-IFD
// holding Paris DMS rationals (48°51' / 2°21'), the same TIFF structure a
// camera writes inside a JPEG APP1 segment.
func gpsExifTIFF(t *testing.T, latRef, lonRef byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	write := func(v any) {
		require.NoError(t, binary.Write(buf, binary.LittleEndian, v))
	}
	entry := func(tag, typ uint16, count uint32, value [4]byte) {
		write(tag)
		write(typ)
		write(count)
		buf.Write(value[:])
	}

	buf.WriteString("II")
	write(uint16(42))
	write(uint32(8)) // IFD0 offset

	// IFD0: a single pointer-of-type-LONG entry to the GPS sub-IFD at 26.
	write(uint16(1))
	entry(0x8825, 4, 1, [4]byte{26, 0, 0, 0})
	write(uint32(0))

	// GPS sub-IFD: ASCII refs inline, rational triples in the data area
	// starting at 80.
	write(uint16(4))
	entry(1, 2, 2, [4]byte{latRef, 0, 0, 0}) // GPSLatitudeRef
	entry(2, 5, 3, [4]byte{80, 0, 0, 0})     // GPSLatitude
	entry(3, 2, 2, [4]byte{lonRef, 0, 0, 0}) // GPSLongitudeRef
	entry(4, 5, 3, [4]byte{104, 0, 0, 0})    // GPSLongitude
	write(uint32(0))

	for _, rat := range []uint32{48, 1, 51, 1, 0, 1, 2, 1, 21, 1, 0, 1} {
		write(rat)
	}
	return buf.Bytes()
}

func TestExtractGPS(t *testing.T) {
	t.Run("ParisRoundTrip", func(t *testing.T) {
		lat, lon, err := ExtractGPS(gpsExifTIFF(t, 'N', 'E'))
		require.NoError(t, err)
		assert.InDelta(t, 48.85, lat, 1e-9)
		assert.InDelta(t, 2.35, lon, 1e-9)
	})

	t.Run("SouthWestRefsFlipSign", func(t *testing.T) {
		lat, lon, err := ExtractGPS(gpsExifTIFF(t, 'S', 'W'))
		require.NoError(t, err)
		assert.InDelta(t, -48.85, lat, 1e-9)
		assert.InDelta(t, -2.35, lon, 1e-9)
	})

	t.Run("RejectsNonImages", func(t *testing.T) {
		_, _, err := ExtractGPS([]byte("definitely not a jpeg"))
		assert.Error(t, err)
	})
}

func seedGPSIndex(t *testing.T, store *mock.Store, index map[string]gpsEntry) {
	t.Helper()
	body, err := json.Marshal(index)
	require.NoError(t, err)
	store.Seed(gpsIndexKey, body)
}

func TestImagesWithGPS(t *testing.T) {
	ctx := context.Background()

	t.Run("IndexedImagesSkipDownload", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("photos/paris.jpg")
		seedGPSIndex(t, store, map[string]gpsEntry{
			"photos/paris.jpg": {Lat: 48.85, Lon: 2.35},
		})

		images := cache.ImagesWithGPS(ctx, store, []string{"photos/paris.jpg"})
		require.Len(t, images, 1)
		assert.Equal(t, "photos/paris.jpg", images[0].Key)
		assert.InDelta(t, 48.85, images[0].Lat, 1e-9)
		assert.InDelta(t, 2.35, images[0].Lon, 1e-9)
		assert.Contains(t, images[0].URL, "thumbnails/photos/paris.jpg")
		// Only the index itself was downloaded.
		assert.Equal(t, 1, store.GetCalls)
	})

	t.Run("ImagesWithoutGPSAreOmitted", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("photos/paris.jpg", "photos/noexif.jpg")
		seedGPSIndex(t, store, map[string]gpsEntry{
			"photos/paris.jpg": {Lat: 48.85, Lon: 2.35},
		})

		images := cache.ImagesWithGPS(ctx, store, []string{"photos/paris.jpg", "photos/noexif.jpg"})
		require.Len(t, images, 1)
		assert.Equal(t, "photos/paris.jpg", images[0].Key)
	})

	t.Run("IndexNotRewrittenWhenUnchanged", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("photos/paris.jpg")
		seedGPSIndex(t, store, map[string]gpsEntry{
			"photos/paris.jpg": {Lat: 48.85, Lon: 2.35},
		})

		cache.ImagesWithGPS(ctx, store, []string{"photos/paris.jpg"})
		assert.Equal(t, 0, store.PutCalls)
	})

	t.Run("MemoServesRepeatCallsWithFreshURLs", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("photos/paris.jpg")
		seedGPSIndex(t, store, map[string]gpsEntry{
			"photos/paris.jpg": {Lat: 48.85, Lon: 2.35},
		})

		first := cache.ImagesWithGPS(ctx, store, []string{"photos/paris.jpg"})
		gets := store.GetCalls
		second := cache.ImagesWithGPS(ctx, store, []string{"photos/paris.jpg"})

		assert.Equal(t, gets, store.GetCalls)
		require.Len(t, second, 1)
		assert.NotEqual(t, first[0].URL, second[0].URL)
	})

	t.Run("MemoKeyIgnoresKeyOrder", func(t *testing.T) {
		assert.Equal(t,
			gpsMemoKey("b", []string{"x.jpg", "a.jpg"}),
			gpsMemoKey("b", []string{"a.jpg", "x.jpg"}))
		assert.NotEqual(t,
			gpsMemoKey("b", []string{"a.jpg"}),
			gpsMemoKey("c", []string{"a.jpg"}))
	})

	t.Run("CorruptIndexIsRebuilt", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("photos/noexif.jpg")
		store.Seed(gpsIndexKey, []byte("{not json"))

		images := cache.ImagesWithGPS(ctx, store, []string{"photos/noexif.jpg"})
		assert.Empty(t, images)
	})
}
