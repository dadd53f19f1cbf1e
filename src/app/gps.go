package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
)

// gpsIndexKey is the persisted coordinate index, stored alongside the
// thumbnails so it never shows up in file listings as user content.
const gpsIndexKey = ThumbnailPrefix + "gps_data.json"

const gpsURLTTL = 15 * time.Minute

type gpsEntry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GPSCoordinate is the durable part of a located image: key plus decimal
// degrees. Presigned URLs are never persisted with it.
type GPSCoordinate struct {
	Key string  `json:"key"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GPSImage is a located image ready for the map: coordinates plus a fresh
// thumbnail URL.
type GPSImage struct {
	Key string  `json:"key"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	URL string  `json:"url"`
}

// DecimalDegrees converts a degrees/minutes/seconds triple to decimal
// degrees, negated for the S and W hemispheres.
func DecimalDegrees(deg, min, sec float64, ref string) float64 {
	decimal := deg + min/60 + sec/3600
	if ref == "S" || ref == "W" {
		decimal = -decimal
	}
	return decimal
}

func dmsField(meta *exif.Exif, field, refField exif.FieldName) (float64, error) {
	tag, err := meta.Get(field)
	if err != nil {
		return 0, err
	}
	var parts [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, err
		}
		if den == 0 {
			return 0, fmt.Errorf("zero denominator in %s", field)
		}
		parts[i] = float64(num) / float64(den)
	}
	ref := "N"
	if refTag, err := meta.Get(refField); err == nil {
		if value, err := refTag.StringVal(); err == nil {
			ref = strings.TrimSpace(value)
		}
	}
	return DecimalDegrees(parts[0], parts[1], parts[2], ref), nil
}

// ExtractGPS decodes EXIF metadata and returns decimal-degree coordinates.
// Images without usable GPS tags return an error and are simply omitted
// from the map by callers.
func ExtractGPS(data []byte) (float64, float64, error) {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	lat, err := dmsField(meta, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		return 0, 0, err
	}
	lon, err := dmsField(meta, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func gpsMemoKey(bucket string, keys []string) string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	return bucket + "|" + strings.Join(sorted, ",")
}

func (s *StorageCache) loadGPSIndex(ctx context.Context, store ObjectStore) map[string]gpsEntry {
	index := make(map[string]gpsEntry)
	data, err := store.Get(ctx, gpsIndexKey)
	if err != nil {
		return index
	}
	if err := json.Unmarshal(data, &index); err != nil {
		log.Warn().Err(err).Str("bucket", store.Bucket()).Msg("could not parse gps index, rebuilding")
		return make(map[string]gpsEntry)
	}
	return index
}

// ImagesWithGPS resolves coordinates for the given image keys: first from
// the in-memory memo, then from the persisted index, and only then by
// downloading the originals and reading EXIF. The index is written back
// only when new coordinates were discovered. Thumbnail URLs are generated
// fresh on every call.
func (s *StorageCache) ImagesWithGPS(ctx context.Context, store ObjectStore, keys []string) []GPSImage {
	memoKey := gpsMemoKey(store.Bucket(), keys)
	if coords, ok := s.gpsMemo.Get(memoKey); ok {
		return s.attachThumbnailURLs(ctx, store, coords)
	}

	index := s.loadGPSIndex(ctx, store)
	updated := false
	for _, key := range keys {
		if _, ok := index[key]; ok {
			continue
		}
		data, err := store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("could not download image for gps extraction")
			continue
		}
		lat, lon, err := ExtractGPS(data)
		if err != nil {
			continue
		}
		index[key] = gpsEntry{Lat: lat, Lon: lon}
		updated = true
	}
	if updated {
		body, err := json.Marshal(index)
		if err == nil {
			err = store.Put(ctx, gpsIndexKey, body, "application/json")
		}
		if err != nil {
			log.Error().Err(err).Str("bucket", store.Bucket()).Msg("could not persist gps index")
		}
	}

	coords := make([]GPSCoordinate, 0, len(keys))
	for _, key := range keys {
		if entry, ok := index[key]; ok {
			coords = append(coords, GPSCoordinate{Key: key, Lat: entry.Lat, Lon: entry.Lon})
		}
	}
	s.gpsMemo.Put(memoKey, coords)
	return s.attachThumbnailURLs(ctx, store, coords)
}

func (s *StorageCache) attachThumbnailURLs(ctx context.Context, store ObjectStore, coords []GPSCoordinate) []GPSImage {
	images := make([]GPSImage, 0, len(coords))
	for _, coord := range coords {
		presignedURL, err := store.PresignGet(ctx, ThumbnailKey(coord.Key), gpsURLTTL, nil)
		if err != nil {
			log.Warn().Err(err).Str("key", coord.Key).Msg("could not presign thumbnail for map")
			continue
		}
		images = append(images, GPSImage{Key: coord.Key, Lat: coord.Lat, Lon: coord.Lon, URL: presignedURL})
	}
	return images
}
