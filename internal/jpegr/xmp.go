package jpegr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/vearutop/uhdrgen/internal/transfer"
)

const (
	xmpNamespace = "http://ns.adobe.com/xap/1.0/"
	isoNamespace = "urn:iso:std:iso:ts:21496:-1"
)

var (
	xmpPrefix = append([]byte(xmpNamespace), 0)
	isoPrefix = append([]byte(isoNamespace), 0)
)

const primaryXMPTemplate = `<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="uhdrgen">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:Container="http://ns.google.com/photos/1.0/container/"
    xmlns:Item="http://ns.google.com/photos/1.0/container/item/"
    xmlns:hdrgm="http://ns.adobe.com/hdr-gain-map/1.0/"
   hdrgm:Version="%s">
   <Container:Directory>
    <rdf:Seq>
     <rdf:li rdf:parseType="Resource">
      <Container:Item Item:Semantic="Primary" Item:Mime="image/jpeg"/>
     </rdf:li>
     <rdf:li rdf:parseType="Resource">
      <Container:Item Item:Semantic="GainMap" Item:Mime="image/jpeg" Item:Length="%d"/>
     </rdf:li>
    </rdf:Seq>
   </Container:Directory>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>`

const gainMapXMPTemplate = `<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="uhdrgen">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:hdrgm="http://ns.adobe.com/hdr-gain-map/1.0/"
   hdrgm:Version="%s"
   hdrgm:GainMapMin="%s"
   hdrgm:GainMapMax="%s"
   hdrgm:Gamma="%s"
   hdrgm:OffsetSDR="%s"
   hdrgm:OffsetHDR="%s"
   hdrgm:HDRCapacityMin="%s"
   hdrgm:HDRCapacityMax="%s"
   hdrgm:BaseRenditionIsHDR="False"/>
 </rdf:RDF>
</x:xmpmeta>`

// primaryXMP describes the container directory; gainMapLen is the full size of
// the gain map image including its own metadata segments.
func primaryXMP(gainMapLen int) []byte {
	return append(append([]byte(nil), xmpPrefix...), fmt.Sprintf(primaryXMPTemplate, jpegrVersion, gainMapLen)...)
}

// gainMapXMP carries the single-channel (first channel) view of the metadata.
func gainMapXMP(m *GainMapMetadata) []byte {
	body := fmt.Sprintf(gainMapXMPTemplate,
		jpegrVersion,
		formatFloat(transfer.Log2(m.MinContentBoost[0])),
		formatFloat(transfer.Log2(m.MaxContentBoost[0])),
		formatFloat(m.Gamma[0]),
		formatFloat(m.OffsetSDR[0]),
		formatFloat(m.OffsetHDR[0]),
		formatFloat(transfer.Log2(m.HDRCapacityMin)),
		formatFloat(transfer.Log2(m.HDRCapacityMax)),
	)
	return append(append([]byte(nil), xmpPrefix...), body...)
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

var hdrgmAttr = regexp.MustCompile(`hdrgm:(\w+)="([^"]*)"`)

// parseGainMapXMP reads hdrgm attributes from an APP1 XMP payload.
func parseGainMapXMP(app1 []byte) (*GainMapMetadata, error) {
	if len(app1) <= len(xmpPrefix) || !strings.HasPrefix(string(app1), string(xmpPrefix)) {
		return nil, errors.New("xmp namespace mismatch")
	}
	attrs := map[string]string{}
	for _, m := range hdrgmAttr.FindAllStringSubmatch(string(app1[len(xmpPrefix):]), -1) {
		attrs[m[1]] = m[2]
	}
	if attrs["BaseRenditionIsHDR"] == "True" {
		return nil, errors.New("base rendition HDR not supported")
	}

	version, ok := attrs["Version"]
	if !ok {
		return nil, errors.New("xmp missing Version")
	}
	for _, required := range []string{"GainMapMax", "HDRCapacityMax"} {
		if _, ok := attrs[required]; !ok {
			return nil, errors.Errorf("xmp missing %s", required)
		}
	}

	values := map[string]float32{
		"GainMapMin":     0,
		"Gamma":          1,
		"OffsetSDR":      1.0 / 64.0,
		"OffsetHDR":      1.0 / 64.0,
		"HDRCapacityMin": 0,
	}
	for _, name := range []string{"GainMapMin", "GainMapMax", "Gamma", "OffsetSDR", "OffsetHDR", "HDRCapacityMin", "HDRCapacityMax"} {
		s, ok := attrs[name]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "xmp %s", name)
		}
		values[name] = float32(v)
	}

	m := SingleChannelMetadata(
		transfer.Exp2(values["GainMapMin"]),
		transfer.Exp2(values["GainMapMax"]),
		values["Gamma"],
		0,
	)
	m.Version = version
	for c := 0; c < 3; c++ {
		m.OffsetSDR[c] = values["OffsetSDR"]
		m.OffsetHDR[c] = values["OffsetHDR"]
	}
	m.HDRCapacityMin = transfer.Exp2(values["HDRCapacityMin"])
	m.HDRCapacityMax = transfer.Exp2(values["HDRCapacityMax"])
	return m, nil
}
