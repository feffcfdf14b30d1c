// Package exiftest assembles minimal big-endian TIFF streams carrying the
// EXIF fields the extractor reads. goexif decodes a bare TIFF stream
// wherever it accepts a JPEG, so fixtures written from Encode stand in for
// camera files in tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Photo describes the EXIF content of one fixture. An empty timestamp
// string omits the corresponding tag; GPS tags are written only when HasGPS
// is set.
type Photo struct {
	DateTime          string
	DateTimeOriginal  string
	DateTimeDigitized string
	HasGPS            bool
	Lat               float64
	Lon               float64
}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5

	tagGPSLatitudeRef    = 0x0001
	tagGPSLatitude       = 0x0002
	tagGPSLongitudeRef   = 0x0003
	tagGPSLongitude      = 0x0004
	tagDateTime          = 0x0132
	tagExifIFD           = 0x8769
	tagGPSIFD            = 0x8825
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) entry {
	v := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(v)), value: v}
}

func longEntry(tag uint16, v uint32) entry {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return entry{tag: tag, typ: typeLong, count: 1, value: b}
}

func rationalEntry(tag uint16, vals [][2]uint32) entry {
	var b bytes.Buffer
	for _, v := range vals {
		binary.Write(&b, binary.BigEndian, v[0])
		binary.Write(&b, binary.BigEndian, v[1])
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(vals)), value: b.Bytes()}
}

// dms converts a signed decimal degree into the degree/minute/second
// rationals EXIF stores, with millisecond-of-arc precision.
func dms(v float64) [][2]uint32 {
	v = math.Abs(v)
	deg := math.Floor(v)
	rem := (v - deg) * 60
	min := math.Floor(rem)
	sec := (rem - min) * 60
	return [][2]uint32{
		{uint32(deg), 1},
		{uint32(min), 1},
		{uint32(math.Round(sec * 1000)), 1000},
	}
}

// ifdSize is the serialized size of a directory with n entries: the entry
// count, the entries, and the next-IFD offset.
func ifdSize(n int) int { return 2 + 12*n + 4 }

// writeIFD serializes one directory. Values wider than four bytes go to the
// shared data area, which starts at dataStart in the final stream.
func writeIFD(out *bytes.Buffer, entries []entry, data *bytes.Buffer, dataStart int) {
	binary.Write(out, binary.BigEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(out, binary.BigEndian, e.tag)
		binary.Write(out, binary.BigEndian, e.typ)
		binary.Write(out, binary.BigEndian, e.count)
		if len(e.value) <= 4 {
			v := make([]byte, 4)
			copy(v, e.value)
			out.Write(v)
		} else {
			binary.Write(out, binary.BigEndian, uint32(dataStart+data.Len()))
			data.Write(e.value)
		}
	}
	binary.Write(out, binary.BigEndian, uint32(0))
}

// Encode serializes the photo as a big-endian TIFF stream: IFD0, then the
// Exif and GPS sub-directories, then the out-of-line value data.
func Encode(p Photo) []byte {
	var exifEntries []entry
	if p.DateTimeOriginal != "" {
		exifEntries = append(exifEntries, asciiEntry(tagDateTimeOriginal, p.DateTimeOriginal))
	}
	if p.DateTimeDigitized != "" {
		exifEntries = append(exifEntries, asciiEntry(tagDateTimeDigitized, p.DateTimeDigitized))
	}

	var gpsEntries []entry
	if p.HasGPS {
		latRef, lonRef := "N", "E"
		if p.Lat < 0 {
			latRef = "S"
		}
		if p.Lon < 0 {
			lonRef = "W"
		}
		gpsEntries = append(gpsEntries,
			asciiEntry(tagGPSLatitudeRef, latRef),
			rationalEntry(tagGPSLatitude, dms(p.Lat)),
			asciiEntry(tagGPSLongitudeRef, lonRef),
			rationalEntry(tagGPSLongitude, dms(p.Lon)),
		)
	}

	var ifd0 []entry
	if p.DateTime != "" {
		ifd0 = append(ifd0, asciiEntry(tagDateTime, p.DateTime))
	}

	n0 := len(ifd0)
	if len(exifEntries) > 0 {
		n0++
	}
	if len(gpsEntries) > 0 {
		n0++
	}

	exifOff := 8 + ifdSize(n0)
	gpsOff := exifOff
	if len(exifEntries) > 0 {
		gpsOff += ifdSize(len(exifEntries))
	}
	dataStart := gpsOff
	if len(gpsEntries) > 0 {
		dataStart += ifdSize(len(gpsEntries))
	}

	// Pointer tags sort after the timestamp tags, keeping entries in the
	// ascending tag order TIFF requires.
	if len(exifEntries) > 0 {
		ifd0 = append(ifd0, longEntry(tagExifIFD, uint32(exifOff)))
	}
	if len(gpsEntries) > 0 {
		ifd0 = append(ifd0, longEntry(tagGPSIFD, uint32(gpsOff)))
	}

	var out bytes.Buffer
	out.WriteString("MM")
	binary.Write(&out, binary.BigEndian, uint16(0x2A))
	binary.Write(&out, binary.BigEndian, uint32(8))

	var data bytes.Buffer
	writeIFD(&out, ifd0, &data, dataStart)
	if len(exifEntries) > 0 {
		writeIFD(&out, exifEntries, &data, dataStart)
	}
	if len(gpsEntries) > 0 {
		writeIFD(&out, gpsEntries, &data, dataStart)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}
