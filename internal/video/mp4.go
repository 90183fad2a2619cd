package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/abema/go-mp4"
)

// Run is one encoded JPEG frame shown Count times in a row.
type Run struct {
	JPEG  []byte
	Count int
}

const (
	// ISO/IEC 14496-1 object type for JPEG stills, read by players as MJPEG.
	objectTypeJPEG = 0x6C
	streamVisual   = 0x04

	trackEnabled = 0x000001
	trackInMovie = 0x000002
)

var identity = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

// WriteMJPEG writes runs as a single-track MP4 whose samples are JPEG
// frames. Each run is stored as one chunk. Every sample is a sync sample,
// so the file carries no stss box.
func WriteMJPEG(ctx context.Context, w io.WriteSeeker, width, height, fps int, runs []Run) error {
	if width <= 0 || height <= 0 || width > math.MaxUint16 || height > math.MaxUint16 || fps <= 0 {
		return fmt.Errorf("mp4: invalid format %dx%d@%d", width, height, fps)
	}

	var frames, payload uint64
	for _, r := range runs {
		if r.Count < 0 {
			return fmt.Errorf("mp4: negative frame count %d", r.Count)
		}
		if r.Count == 0 {
			continue
		}
		if len(r.JPEG) == 0 {
			return errors.New("mp4: empty frame")
		}
		frames += uint64(r.Count)
		payload += uint64(r.Count) * uint64(len(r.JPEG))
	}
	if frames == 0 {
		return errors.New("mp4: no frames")
	}
	// stco offsets and the mdat header are 32-bit.
	if payload > math.MaxUint32-1<<16 {
		return fmt.Errorf("mp4: output too large (%d bytes)", payload)
	}

	bw := &boxWriter{w: mp4.NewWriter(w)}
	bw.leaf(&mp4.Ftyp{
		MajorBrand: [4]byte{'i', 's', 'o', 'm'},
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
		},
	})

	var (
		offsets []uint32
		sizes   []uint32
		stsc    []mp4.StscEntry
	)
	bw.start(mp4.BoxTypeMdat())
	if bw.err != nil {
		return bw.err
	}
	pos, err := bw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("mp4: %w", err)
	}
	for _, r := range runs {
		if r.Count == 0 {
			continue
		}
		offsets = append(offsets, uint32(pos))
		stsc = append(stsc, mp4.StscEntry{FirstChunk: uint32(len(offsets)), SamplesPerChunk: uint32(r.Count), SampleDescriptionIndex: 1})
		for i := 0; i < r.Count; i++ {
			if i%64 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if _, err := bw.w.Write(r.JPEG); err != nil {
				return fmt.Errorf("mp4: write frame: %w", err)
			}
			sizes = append(sizes, uint32(len(r.JPEG)))
		}
		pos += int64(r.Count) * int64(len(r.JPEG))
	}
	bw.end()

	duration := uint32(frames)
	bw.start(mp4.BoxTypeMoov())
	bw.leaf(&mp4.Mvhd{
		Timescale:   uint32(fps),
		DurationV0:  duration,
		Rate:        0x00010000,
		Volume:      0x0100,
		Matrix:      identity,
		NextTrackID: 2,
	})
	bw.start(mp4.BoxTypeTrak())
	tkhd := &mp4.Tkhd{
		TrackID:    1,
		DurationV0: duration,
		Matrix:     identity,
		Width:      uint32(width) << 16,
		Height:     uint32(height) << 16,
	}
	tkhd.SetFlags(trackEnabled | trackInMovie)
	bw.leaf(tkhd)

	bw.start(mp4.BoxTypeMdia())
	bw.leaf(&mp4.Mdhd{
		Timescale:  uint32(fps),
		DurationV0: duration,
		Language:   [3]byte{'u' - 0x60, 'n' - 0x60, 'd' - 0x60},
	})
	bw.leaf(&mp4.Hdlr{HandlerType: [4]byte{'v', 'i', 'd', 'e'}, Name: "VideoHandler"})

	bw.start(mp4.BoxTypeMinf())
	vmhd := &mp4.Vmhd{}
	vmhd.SetFlags(0x000001)
	bw.leaf(vmhd)
	bw.start(mp4.BoxTypeDinf())
	bw.startWith(&mp4.Dref{EntryCount: 1})
	url := &mp4.Url{}
	url.SetFlags(0x000001) // media is in this file
	bw.leaf(url)
	bw.end()
	bw.end()

	bw.start(mp4.BoxTypeStbl())
	bw.startWith(&mp4.Stsd{EntryCount: 1})
	bw.startWith(sampleEntry(width, height))
	bw.leaf(esds())
	bw.end()
	bw.end()
	bw.leaf(&mp4.Stts{EntryCount: 1, Entries: []mp4.SttsEntry{{SampleCount: duration, SampleDelta: 1}}})
	bw.leaf(&mp4.Stsc{EntryCount: uint32(len(stsc)), Entries: stsc})
	bw.leaf(&mp4.Stsz{SampleCount: uint32(len(sizes)), EntrySize: sizes})
	bw.leaf(&mp4.Stco{EntryCount: uint32(len(offsets)), ChunkOffset: offsets})
	bw.end() // stbl
	bw.end() // minf
	bw.end() // mdia
	bw.end() // trak
	bw.end() // moov
	return bw.err
}

func sampleEntry(width, height int) *mp4.VisualSampleEntry {
	e := &mp4.VisualSampleEntry{
		SampleEntry: mp4.SampleEntry{
			AnyTypeBox:         mp4.AnyTypeBox{Type: mp4.BoxTypeMp4v()},
			DataReferenceIndex: 1,
		},
		Width:           uint16(width),
		Height:          uint16(height),
		Horizresolution: 0x00480000,
		Vertresolution:  0x00480000,
		FrameCount:      1,
		Depth:           0x0018,
		PreDefined3:     -1,
	}
	name := "Motion JPEG"
	e.Compressorname[0] = byte(len(name))
	copy(e.Compressorname[1:], name)
	return e
}

// esds describes the track as JPEG stills. Descriptor sizes count the
// four-byte varint length fields go-mp4 always writes.
func esds() *mp4.Esds {
	const (
		decoderConfigSize = 13
		slConfigSize      = 1
		esSize            = 3 + (1 + 4 + decoderConfigSize) + (1 + 4 + slConfigSize)
	)
	return &mp4.Esds{
		Descriptors: []mp4.Descriptor{
			{
				Tag:          mp4.ESDescrTag,
				Size:         esSize,
				ESDescriptor: &mp4.ESDescriptor{ESID: 1},
			},
			{
				Tag:  mp4.DecoderConfigDescrTag,
				Size: decoderConfigSize,
				DecoderConfigDescriptor: &mp4.DecoderConfigDescriptor{
					ObjectTypeIndication: objectTypeJPEG,
					StreamType:           streamVisual,
					Reserved:             true,
				},
			},
			{
				Tag:  mp4.SLConfigDescrTag,
				Size: slConfigSize,
				Data: []byte{0x02},
			},
		},
	}
}

// boxWriter keeps the first error so box trees read top to bottom.
type boxWriter struct {
	w   *mp4.Writer
	err error
}

func (b *boxWriter) start(t mp4.BoxType) {
	if b.err != nil {
		return
	}
	if _, err := b.w.StartBox(&mp4.BoxInfo{Type: t}); err != nil {
		b.err = fmt.Errorf("mp4: start %s: %w", t, err)
	}
}

// startWith opens a box whose own fields precede its children.
func (b *boxWriter) startWith(box mp4.IImmutableBox) {
	b.start(box.GetType())
	if b.err != nil {
		return
	}
	if _, err := mp4.Marshal(b.w, box, mp4.Context{}); err != nil {
		b.err = fmt.Errorf("mp4: marshal %s: %w", box.GetType(), err)
	}
}

func (b *boxWriter) leaf(box mp4.IImmutableBox) {
	b.startWith(box)
	b.end()
}

func (b *boxWriter) end() {
	if b.err != nil {
		return
	}
	if _, err := b.w.EndBox(); err != nil {
		b.err = fmt.Errorf("mp4: end box: %w", err)
	}
}
