package tools

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// candidateSynthesizers is the ordered list of external TTS engines probed
// at discovery time. "say" is the platform speech API on macOS.
var candidateSynthesizers = []string{"espeak-ng", "espeak", "festival", "say"}

const (
	sampleRate  = 22050
	sineFreqMin = 220.0
	sineFreqMax = 880.0
)

// TTSTool synthesizes speech audio from text, preferring an external
// synthesizer and falling back to a generated sine wave when none is
// available.
type TTSTool struct {
	outputDir string

	discoverOnce sync.Once
	engine       string // "" once discovered means "no engine available"
	counter      atomic.Uint64
}

// NewTTSTool returns a TTSTool writing WAV files under outputDir.
func NewTTSTool(outputDir string) *TTSTool {
	return &TTSTool{outputDir: outputDir}
}

func (t *TTSTool) Name() string { return "text_to_speech" }

func (t *TTSTool) Description() string {
	return "Synthesizes the given text to a WAV audio file and returns its path."
}

func (t *TTSTool) Run(input workflow.ExecutionInput) workflow.ExecutionResult {
	text := input.Content
	if text == "" {
		return failure("text must not be blank")
	}

	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return failure("failed to create output directory: " + err.Error())
	}

	t.discoverOnce.Do(t.discoverEngine)

	outPath := t.nextOutputPath()

	if t.engine != "" {
		if err := t.synthesizeExternal(text, outPath); err == nil {
			return workflow.ExecutionResult{Success: true, Output: outPath}
		}
		// external synthesis failed at runtime even though discovery
		// succeeded; fall through to the sine-wave fallback.
	}

	if err := synthesizeSineWave(text, outPath); err != nil {
		return failure("failed to synthesize audio: " + err.Error())
	}
	return workflow.ExecutionResult{Success: true, Output: outPath}
}

// discoverEngine probes candidateSynthesizers once per TTSTool instance; the
// result is cached for that instance's lifetime.
func (t *TTSTool) discoverEngine() {
	for _, candidate := range candidateSynthesizers {
		if path, err := exec.LookPath(candidate); err == nil {
			t.engine = path
			return
		}
	}
	t.engine = ""
}

func (t *TTSTool) nextOutputPath() string {
	n := t.counter.Add(1)
	ts := time.Now().UnixMilli()
	return filepath.Join(t.outputDir, fmt.Sprintf("tts-%d-%d.wav", n, ts))
}

func (t *TTSTool) synthesizeExternal(text, outPath string) error {
	cmd := exec.Command(t.engine, "-w", outPath, text)
	return cmd.Run()
}

// synthesizeSineWave writes a PCM16 mono WAV whose frequency derives from a
// hash of text and whose duration (1-10s) is proportional to text length.
func synthesizeSineWave(text, outPath string) error {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	ratio := float64(h.Sum32()%1000) / 1000.0
	freq := sineFreqMin + ratio*(sineFreqMax-sineFreqMin)

	durationSeconds := 1.0 + math.Min(9.0, float64(len(text))/40.0)
	numSamples := int(durationSeconds * sampleRate)

	samples := make([]int16, numSamples)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * math.MaxInt16 * 0.5)
	}

	return writeWAV(outPath, samples)
}

// writeWAV writes a 44-byte PCM16 mono WAV header followed by samples, all
// little-endian.
func writeWAV(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dataSize := len(samples) * 2
	byteRate := sampleRate * 2
	blockAlign := 2

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := f.Write(header); err != nil {
		return err
	}

	buf := make([]byte, dataSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(s))
	}
	_, err = f.Write(buf)
	return err
}
