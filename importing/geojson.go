package importing

import (
	"io"
	"os"
	"time"

	"geoindex/geometry"
	"geoindex/index"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

func WriteEntriesAsGeoJsonFile(entries []*index.Node[string], outputFile string) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", outputFile)
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for GeoJSON file %s", file.Name()))
	}()

	return WriteEntriesAsGeoJson(entries, file)
}

// WriteEntriesAsGeoJson writes the inverse-projected envelopes of the
// entries as a GeoJSON feature collection.
func WriteEntriesAsGeoJson(entries []*index.Node[string], writer io.Writer) error {
	sigolo.Info("Write entries to GeoJSON")
	writeStartTime := time.Now()

	featureCollection := geojson.NewFeatureCollection()
	for _, entry := range entries {
		bound := geometry.Unproject(entry.Envelope())

		feature := geojson.NewFeature(bound.ToPolygon())
		feature.Properties["id"] = entry.Payload()

		featureCollection.Features = append(featureCollection.Features, feature)
	}

	geojsonBytes, err := featureCollection.MarshalJSON()
	if err != nil {
		return err
	}

	_, err = writer.Write(geojsonBytes)
	if err != nil {
		return err
	}

	writeDuration := time.Since(writeStartTime)
	sigolo.Infof("Finished writing in %s", writeDuration)

	return nil
}
