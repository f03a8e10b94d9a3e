package transcription

import "github.com/kbukum/endpoints/errors"

// Segment is one time-aligned span of transcribed text.
type Segment struct {
	ID               uint16   `json:"id"`
	Seek             uint16   `json:"seek"`
	Start            float32  `json:"start"`
	End              float32  `json:"end"`
	Text             string   `json:"text"`
	Tokens           []uint32 `json:"tokens"`
	Temperature      float32  `json:"temperature"`
	AvgLogprob       float32  `json:"avg_logprob"`
	CompressionRatio float32  `json:"compression_ratio"`
	NoSpeechProb     float32  `json:"no_speech_prob"`
}

// SegmentBuilder assembles a Segment. id, start, end, temperature, text and
// tokens are required; seek and the quality scores default to zero.
type SegmentBuilder struct {
	id          *uint16
	start       *float32
	end         *float32
	temperature *float32
	text        *string
	tokens      []uint32
	hasTokens   bool
	seg         Segment
}

// NewSegment starts a SegmentBuilder.
func NewSegment() *SegmentBuilder { return &SegmentBuilder{} }

// ID sets the segment index. Required.
func (b *SegmentBuilder) ID(id uint16) *SegmentBuilder {
	b.id = &id
	return b
}

// Start sets the start time in seconds. Required.
func (b *SegmentBuilder) Start(s float32) *SegmentBuilder {
	b.start = &s
	return b
}

// End sets the end time in seconds. Required.
func (b *SegmentBuilder) End(e float32) *SegmentBuilder {
	b.end = &e
	return b
}

// Seek sets the offset of the decoding window the segment came from.
func (b *SegmentBuilder) Seek(s uint16) *SegmentBuilder {
	b.seg.Seek = s
	return b
}

// Temperature sets the sampling temperature used to decode the segment.
// Required.
func (b *SegmentBuilder) Temperature(t float32) *SegmentBuilder {
	b.temperature = &t
	return b
}

// Text sets the transcribed text. Required.
func (b *SegmentBuilder) Text(t string) *SegmentBuilder {
	b.text = &t
	return b
}

// Tokens sets the token ids of the text. Required; a nil slice is built
// as an empty list.
func (b *SegmentBuilder) Tokens(t []uint32) *SegmentBuilder {
	b.tokens, b.hasTokens = t, true
	return b
}

// AvgLogprob sets the mean token log probability.
func (b *SegmentBuilder) AvgLogprob(v float32) *SegmentBuilder {
	b.seg.AvgLogprob = v
	return b
}

// CompressionRatio sets the text compression ratio.
func (b *SegmentBuilder) CompressionRatio(v float32) *SegmentBuilder {
	b.seg.CompressionRatio = v
	return b
}

// NoSpeechProb sets the probability that the segment holds no speech.
func (b *SegmentBuilder) NoSpeechProb(v float32) *SegmentBuilder {
	b.seg.NoSpeechProb = v
	return b
}

// Build returns the Segment or a validation error naming the first missing
// required field.
func (b *SegmentBuilder) Build() (Segment, error) {
	missing := func(field string) (Segment, error) {
		return Segment{}, errors.Validation("segment " + field + " is not set")
	}
	switch {
	case b.id == nil:
		return missing("id")
	case b.start == nil:
		return missing("start")
	case b.end == nil:
		return missing("end")
	case b.temperature == nil:
		return missing("temperature")
	case b.text == nil:
		return missing("text")
	case !b.hasTokens:
		return missing("tokens")
	}
	seg := b.seg
	seg.ID = *b.id
	seg.Start = *b.start
	seg.End = *b.end
	seg.Temperature = *b.temperature
	seg.Text = *b.text
	seg.Tokens = b.tokens
	if seg.Tokens == nil {
		seg.Tokens = []uint32{}
	}
	return seg, nil
}
