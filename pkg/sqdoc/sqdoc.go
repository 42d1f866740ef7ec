package sqdoc

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"spanedit/pkg/style"
)

const (
	MagicString      = "SQDOC-SPANS"
	VersionV1        = uint16(1)
	FlagRandomAccess = uint16(1 << 0)

	magicSize   = len(MagicString)
	headerSize  = magicSize + 2 + 2 + 8 + 4
	tocEntSize  = 8 + 1 + 8 + 4 + 4
	spanEntSize = 4 + 4 + 2 + 1 + 2
	metaBlockID = uint64(0)
	textBlockID = uint64(1)
	fmtBlockID  = ^uint64(0)
)

type BlockKind uint8

const (
	BlockKindMetadata BlockKind = 0
	BlockKindText     BlockKind = 1
	BlockKindStyle    BlockKind = 3
)

// Document is the container form of a styled text: one UTF-8 text and the
// span records styling it. Span bounds are inclusive rune indices.
type Document struct {
	Metadata Metadata
	Text     string
	Spans    []SpanRecord
}

type Metadata struct {
	ID           uuid.UUID
	Author       string
	Title        string
	CreatedUnix  int64
	ModifiedUnix int64
}

type SpanRecord struct {
	Start  uint32
	End    uint32
	Styles style.Set
}

type LayoutSegment struct {
	Name    string
	Kind    BlockKind
	BlockID uint64
	Offset  uint64
	Length  uint32
}

type LayoutInfo struct {
	HeaderLength uint32
	IndexOffset  uint64
	IndexLength  uint32
	FileSize     uint64
	Segments     []LayoutSegment
}

type tocEntry struct {
	ID     uint64
	Kind   BlockKind
	Offset uint64
	Length uint32
	CRC32  uint32
}

type encodeResult struct {
	Blob      []byte
	Entries   []tocEntry
	TOCOffset uint64
	TOCLength uint32
}

type payloadEntry struct {
	ID      uint64
	Kind    BlockKind
	Payload []byte
}

var (
	ErrInvalidMagic      = errors.New("sqdoc: invalid magic")
	ErrUnsupportedVer    = errors.New("sqdoc: unsupported version")
	ErrMissingRandomFlag = errors.New("sqdoc: random-access flag required")
	ErrInvalidTOC        = errors.New("sqdoc: invalid toc")
	ErrInvalidBlockRange = errors.New("sqdoc: invalid block range")
	ErrOverlappingBlocks = errors.New("sqdoc: overlapping block ranges")
	ErrMissingText       = errors.New("sqdoc: text block missing")
	ErrInvalidSpan       = errors.New("sqdoc: invalid span record")
)

func NewDocument(author, title string) *Document {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	now := time.Now().Unix()
	return &Document{Metadata: Metadata{
		ID:           id,
		Author:       author,
		Title:        title,
		CreatedUnix:  now,
		ModifiedUnix: now,
	}}
}

func Save(path string, doc *Document) error {
	return SaveWithOptions(path, doc, SaveOptions{})
}

func SaveWithOptions(path string, doc *Document, opts SaveOptions) error {
	blob, err := Marshal(doc, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Load(path string) (*Document, error) {
	return LoadWithOptions(path, LoadOptions{})
}

func LoadWithOptions(path string, opts LoadOptions) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(b, opts)
}

// Marshal encodes doc, stamping its modification time, and wraps the result
// in the sealed envelope when opts ask for compression or encryption.
func Marshal(doc *Document, opts SaveOptions) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("sqdoc: document is nil")
	}
	now := time.Now().Unix()
	if doc.Metadata.CreatedUnix == 0 {
		doc.Metadata.CreatedUnix = now
	}
	doc.Metadata.ModifiedUnix = now

	if err := Validate(doc); err != nil {
		return nil, err
	}
	res, err := encodeDocumentDetailed(doc)
	if err != nil {
		return nil, err
	}
	if !opts.sealed() {
		return res.Blob, nil
	}
	return seal(res.Blob, doc.Metadata.ID, opts)
}

func Unmarshal(b []byte, opts LoadOptions) (*Document, error) {
	var (
		sealedID uuid.UUID
		err      error
	)
	sealed := isSealed(b)
	if sealed {
		if b, sealedID, err = unseal(b, opts); err != nil {
			return nil, err
		}
	}
	doc, err := decodeDocument(b)
	if err != nil {
		return nil, err
	}
	if sealed && doc.Metadata.ID != sealedID {
		return nil, fmt.Errorf("%w: envelope id %s does not match document %s", ErrInvalidSecureFile, sealedID, doc.Metadata.ID)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func InspectLayout(doc *Document) (*LayoutInfo, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	res, err := encodeDocumentDetailed(doc)
	if err != nil {
		return nil, err
	}

	segments := []LayoutSegment{{
		Name:    "Header",
		Kind:    BlockKindMetadata,
		BlockID: metaBlockID,
		Offset:  0,
		Length:  uint32(headerSize),
	}, {
		Name:    "Index",
		Kind:    BlockKindStyle,
		BlockID: fmtBlockID,
		Offset:  res.TOCOffset,
		Length:  res.TOCLength,
	}}
	for _, e := range res.Entries {
		name := "Block"
		switch e.Kind {
		case BlockKindMetadata:
			name = "Metadata"
		case BlockKindStyle:
			name = "Span Directive"
		case BlockKindText:
			name = "Text"
		}
		segments = append(segments, LayoutSegment{
			Name:    name,
			Kind:    e.Kind,
			BlockID: e.ID,
			Offset:  e.Offset,
			Length:  e.Length,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Offset < segments[j].Offset })

	return &LayoutInfo{
		HeaderLength: uint32(headerSize),
		IndexOffset:  res.TOCOffset,
		IndexLength:  res.TOCLength,
		FileSize:     uint64(len(res.Blob)),
		Segments:     segments,
	}, nil
}

func Validate(doc *Document) error {
	if doc == nil {
		return errors.New("sqdoc: document is nil")
	}
	if !utf8.ValidString(doc.Metadata.Author) || !utf8.ValidString(doc.Metadata.Title) {
		return errors.New("sqdoc: metadata fields must be valid UTF-8")
	}
	if !utf8.ValidString(doc.Text) {
		return errors.New("sqdoc: text is not valid UTF-8")
	}
	length := uint32(utf8.RuneCountInString(doc.Text))
	for i, r := range doc.Spans {
		if r.Start > r.End {
			return fmt.Errorf("%w: span[%d] range %d..%d", ErrInvalidSpan, i, r.Start, r.End)
		}
		if r.End >= length {
			return fmt.Errorf("%w: span[%d] range %d..%d outside text length %d", ErrInvalidSpan, i, r.Start, r.End, length)
		}
		if r.Styles.Empty() {
			return fmt.Errorf("%w: span[%d] carries no styles", ErrInvalidSpan, i)
		}
	}
	return nil
}

func encodeDocument(doc *Document) ([]byte, error) {
	res, err := encodeDocumentDetailed(doc)
	if err != nil {
		return nil, err
	}
	return res.Blob, nil
}

// fileHeader follows MagicString.
type fileHeader struct {
	Version   uint16
	Flags     uint16
	TOCOffset uint64
	TOCCount  uint32
}

// spanEntry is the fixed-size record of the span directive block.
type spanEntry struct {
	Start  uint32
	End    uint32
	Flags  uint16
	Header uint8
	Size   uint16
}

func encodeDocumentDetailed(doc *Document) (*encodeResult, error) {
	payloads := []payloadEntry{
		{ID: metaBlockID, Kind: BlockKindMetadata, Payload: encodeMetadata(doc.Metadata)},
		{ID: fmtBlockID, Kind: BlockKindStyle, Payload: encodeSpanDirective(doc.Spans)},
		{ID: textBlockID, Kind: BlockKindText, Payload: encodeText(doc.Text)},
	}

	tocLength := uint32(len(payloads) * tocEntSize)
	offset := uint64(headerSize) + uint64(tocLength)
	entries := make([]tocEntry, 0, len(payloads))
	for _, p := range payloads {
		entries = append(entries, tocEntry{
			ID:     p.ID,
			Kind:   p.Kind,
			Offset: offset,
			Length: uint32(len(p.Payload)),
			CRC32:  crc32.ChecksumIEEE(p.Payload),
		})
		offset += uint64(len(p.Payload))
	}

	out := bytes.NewBuffer(make([]byte, 0, offset))
	out.WriteString(MagicString)
	hdr := fileHeader{Version: VersionV1, Flags: FlagRandomAccess, TOCOffset: uint64(headerSize), TOCCount: uint32(len(entries))}
	if err := binary.Write(out, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	if err := binary.Write(out, binary.LittleEndian, entries); err != nil {
		return nil, err
	}
	for _, p := range payloads {
		out.Write(p.Payload)
	}
	return &encodeResult{Blob: out.Bytes(), Entries: entries, TOCOffset: uint64(headerSize), TOCLength: tocLength}, nil
}

func decodeDocument(blob []byte) (*Document, error) {
	if len(blob) < headerSize || !bytes.HasPrefix(blob, []byte(MagicString)) {
		return nil, ErrInvalidMagic
	}
	var hdr fileHeader
	if err := binary.Read(bytes.NewReader(blob[magicSize:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMagic, err)
	}
	if hdr.Version != VersionV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVer, hdr.Version)
	}
	if hdr.Flags&FlagRandomAccess == 0 {
		return nil, ErrMissingRandomFlag
	}
	if end := hdr.TOCOffset + uint64(hdr.TOCCount)*tocEntSize; hdr.TOCOffset > uint64(len(blob)) || end > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}

	entries := make([]tocEntry, hdr.TOCCount)
	if err := binary.Read(bytes.NewReader(blob[hdr.TOCOffset:]), binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTOC, err)
	}
	if err := validateEntryRanges(entries, len(blob)); err != nil {
		return nil, err
	}

	doc := &Document{}
	var sawText bool
	for _, e := range entries {
		payload := blob[e.Offset : e.Offset+uint64(e.Length)]
		if crc32.ChecksumIEEE(payload) != e.CRC32 {
			return nil, fmt.Errorf("sqdoc: crc mismatch for block %d", e.ID)
		}

		var err error
		switch e.Kind {
		case BlockKindMetadata:
			doc.Metadata, err = decodeMetadata(payload)
		case BlockKindStyle:
			doc.Spans, err = decodeSpanDirective(payload)
		case BlockKindText:
			doc.Text, err = decodeText(payload)
			sawText = true
		default:
			// unknown kinds stay skippable via the TOC
		}
		if err != nil {
			return nil, err
		}
	}
	if !sawText {
		return nil, ErrMissingText
	}
	slices.SortFunc(doc.Spans, func(a, b SpanRecord) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
	return doc, nil
}

// validateEntryRanges checks that every block lies inside the file and that
// no two blocks share bytes.
func validateEntryRanges(entries []tocEntry, fileLen int) error {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b tocEntry) int { return cmp.Compare(a.Offset, b.Offset) })

	var prevEnd uint64
	for i, e := range sorted {
		end := e.Offset + uint64(e.Length)
		if e.Offset > uint64(fileLen) || end > uint64(fileLen) {
			return ErrInvalidBlockRange
		}
		if i > 0 && e.Offset < prevEnd {
			return ErrOverlappingBlocks
		}
		prevEnd = end
	}
	return nil
}

func encodeMetadata(m Metadata) []byte {
	out := make([]byte, 0, 64)
	out = append(out, m.ID[:]...)
	out = appendString(out, m.Author)
	out = appendString(out, m.Title)
	out = binary.LittleEndian.AppendUint64(out, uint64(m.CreatedUnix))
	return binary.LittleEndian.AppendUint64(out, uint64(m.ModifiedUnix))
}

func decodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	r := &blockReader{b: b}
	copy(m.ID[:], r.next(len(m.ID)))
	m.Author = r.str()
	m.Title = r.str()
	m.CreatedUnix = int64(r.u64())
	m.ModifiedUnix = int64(r.u64())
	if r.short {
		return Metadata{}, errors.New("sqdoc: malformed metadata block")
	}
	return m, nil
}

func encodeText(text string) []byte {
	return appendString(make([]byte, 0, len(text)+4), text)
}

func decodeText(b []byte) (string, error) {
	r := &blockReader{b: b}
	text := r.str()
	if r.short {
		return "", errors.New("sqdoc: malformed text block")
	}
	return text, nil
}

const (
	flagBold uint16 = 1 << iota
	flagItalic
	flagUnderline
	flagBullet
	flagTitle
	flagSubtitle
)

var flagStyles = []struct {
	flag uint16
	st   style.Style
}{
	{flagBold, style.Bold},
	{flagItalic, style.Italic},
	{flagUnderline, style.Underline},
	{flagBullet, style.Bullet},
	{flagTitle, style.Title},
	{flagSubtitle, style.Subtitle},
}

func toSpanEntry(r SpanRecord) spanEntry {
	e := spanEntry{Start: r.Start, End: r.End}
	for _, fs := range flagStyles {
		if r.Styles.Has(fs.st) {
			e.Flags |= fs.flag
		}
	}
	if p, ok := r.Styles.Paragraph(); ok && p.Kind == style.KindHeader {
		e.Header = uint8(p.Value)
	}
	size, _ := r.Styles.FontSizeValue()
	e.Size = uint16(size)
	return e
}

func (e spanEntry) record() (SpanRecord, error) {
	var set style.Set
	for _, fs := range flagStyles {
		if e.Flags&fs.flag != 0 {
			set = set.With(fs.st)
		}
	}
	if e.Header > style.MaxHeaderLevel {
		return SpanRecord{}, fmt.Errorf("%w: header level %d", ErrInvalidSpan, e.Header)
	}
	if e.Header > 0 {
		set = set.With(style.Header(int(e.Header)))
	}
	if e.Size > 0 {
		set = set.With(style.FontSize(int(e.Size)))
	}
	return SpanRecord{Start: e.Start, End: e.End, Styles: set}, nil
}

func encodeSpanDirective(spans []SpanRecord) []byte {
	out := bytes.NewBuffer(make([]byte, 0, 4+len(spans)*spanEntSize))
	entries := make([]spanEntry, 0, len(spans))
	for _, r := range spans {
		entries = append(entries, toSpanEntry(r))
	}
	// writes into a bytes.Buffer of fixed-size values cannot fail
	_ = binary.Write(out, binary.LittleEndian, uint32(len(entries)))
	_ = binary.Write(out, binary.LittleEndian, entries)
	return out.Bytes()
}

func decodeSpanDirective(b []byte) ([]SpanRecord, error) {
	r := &blockReader{b: b}
	count := int(r.u32())
	if r.short || len(r.b) != count*spanEntSize {
		return nil, errors.New("sqdoc: malformed span directive block")
	}
	entries := make([]spanEntry, count)
	if err := binary.Read(bytes.NewReader(r.b), binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("sqdoc: malformed span directive block: %w", err)
	}
	out := make([]SpanRecord, 0, count)
	for _, e := range entries {
		rec, err := e.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func appendString(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// blockReader consumes a block payload front to back. Reading past the end
// yields zero values and sets short.
type blockReader struct {
	b     []byte
	short bool
}

func (r *blockReader) next(n int) []byte {
	if r.short || len(r.b) < n {
		r.short = true
		return nil
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out
}

func (r *blockReader) u32() uint32 {
	if b := r.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *blockReader) u64() uint64 {
	if b := r.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *blockReader) str() string {
	n := r.u32()
	return string(r.next(int(n)))
}
