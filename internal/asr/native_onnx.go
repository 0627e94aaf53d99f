//go:build onnx

package asr

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/rbright/recognis/internal/modelcache"
)

// maxAudioSamples bounds the encoder input to a fixed tensor shape; longer
// utterances are truncated, shorter ones are zero-padded. 30s at 16kHz.
const maxAudioSamples = 30 * 16000

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initONNXRuntime() error {
	ortInitOnce.Do(func() {
		if libPath := os.Getenv("RECOGNIS_ONNXRUNTIME_LIB"); libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// onnxSession drives the real encoder/decoder ONNX graphs.
type onnxSession struct {
	cfg ModelConfig

	encoderIn     *ort.Tensor[float32]
	encoderOut    *ort.Tensor[float32]
	encoderSess   *ort.AdvancedSession
	encoderFrames int

	decoderInputIDs *ort.Tensor[int64]
	decoderHidden   *ort.Tensor[float32]
	decoderUseCache *ort.Tensor[bool]
	decoderLogits   *ort.Tensor[float32]
	decoderKVIn     []*ort.Tensor[float32]
	decoderKVOut    []*ort.Tensor[float32]
	decoderSess     *ort.AdvancedSession
}

func newSession(paths modelcache.Paths, cfg ModelConfig) (session, error) {
	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("onnx: initialize environment: %w", err)
	}

	encoderData, err := os.ReadFile(paths.Encoder)
	if err != nil {
		return nil, fmt.Errorf("onnx: read encoder: %w", err)
	}
	decoderData, err := os.ReadFile(paths.Decoder)
	if err != nil {
		return nil, fmt.Errorf("onnx: read decoder: %w", err)
	}

	s := &onnxSession{cfg: cfg}
	if err := s.buildEncoder(encoderData); err != nil {
		return nil, err
	}
	if err := s.buildDecoder(decoderData); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *onnxSession) buildEncoder(data []byte) error {
	encoderFrames := s.cfg.MaxPositionEmbeddings
	s.encoderFrames = encoderFrames

	in, err := ort.NewEmptyTensor[float32](ort.NewShape(1, maxAudioSamples))
	if err != nil {
		return fmt.Errorf("onnx: encoder input tensor: %w", err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(encoderFrames), int64(s.cfg.HiddenSize)))
	if err != nil {
		in.Destroy()
		return fmt.Errorf("onnx: encoder output tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSessionWithONNXData(
		data,
		[]string{"input_values"},
		[]string{"last_hidden_state"},
		[]ort.Value{in},
		[]ort.Value{out},
		nil,
	)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return fmt.Errorf("onnx: create encoder session: %w", err)
	}

	s.encoderIn = in
	s.encoderOut = out
	s.encoderSess = sess
	return nil
}

func (s *onnxSession) buildDecoder(data []byte) error {
	numLayers := s.cfg.DecoderNumHiddenLayers
	numHeads := s.cfg.DecoderNumKeyValueHeads
	dimKV := s.cfg.DimKV()

	inputIDs, err := ort.NewEmptyTensor[int64](ort.NewShape(1, 1))
	if err != nil {
		return fmt.Errorf("onnx: decoder input_ids tensor: %w", err)
	}
	hidden, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.encoderFrames), int64(s.cfg.HiddenSize)))
	if err != nil {
		inputIDs.Destroy()
		return fmt.Errorf("onnx: decoder hidden tensor: %w", err)
	}
	useCache, err := ort.NewTensor(ort.NewShape(1), []bool{false})
	if err != nil {
		inputIDs.Destroy()
		hidden.Destroy()
		return fmt.Errorf("onnx: decoder use_cache_branch tensor: %w", err)
	}
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, int64(s.cfg.VocabSize)))
	if err != nil {
		inputIDs.Destroy()
		hidden.Destroy()
		useCache.Destroy()
		return fmt.Errorf("onnx: decoder logits tensor: %w", err)
	}

	cache := NewKVCache(numLayers, numHeads, dimKV)
	inputNames := []string{"input_ids", "encoder_hidden_states", "use_cache_branch"}
	outputNames := []string{"logits"}
	inputs := []ort.Value{inputIDs, hidden, useCache}
	outputs := []ort.Value{logits}

	kvIn := make([]*ort.Tensor[float32], len(cache))
	kvOut := make([]*ort.Tensor[float32], len(cache))
	destroyAllocated := func() {
		inputIDs.Destroy()
		hidden.Destroy()
		useCache.Destroy()
		logits.Destroy()
		for _, t := range kvIn {
			if t != nil {
				t.Destroy()
			}
		}
		for _, t := range kvOut {
			if t != nil {
				t.Destroy()
			}
		}
	}

	for i, entry := range cache {
		shape := ort.NewShape(entry.Shape...)
		in, err := ort.NewEmptyTensor[float32](shape)
		if err != nil {
			destroyAllocated()
			return fmt.Errorf("onnx: decoder kv input %q: %w", entry.Name, err)
		}
		kvIn[i] = in
		inputNames = append(inputNames, entry.Name)
		inputs = append(inputs, in)

		if entry.Module == ModuleDecoder {
			out, err := ort.NewEmptyTensor[float32](shape)
			if err != nil {
				destroyAllocated()
				return fmt.Errorf("onnx: decoder kv output for %q: %w", entry.Name, err)
			}
			kvOut[i] = out
			outputNames = append(outputNames, "present."+entry.Name[len("past_key_values."):])
			outputs = append(outputs, out)
		}
	}

	sess, err := ort.NewAdvancedSessionWithONNXData(data, inputNames, outputNames, inputs, outputs, nil)
	if err != nil {
		destroyAllocated()
		return fmt.Errorf("onnx: create decoder session: %w", err)
	}

	s.decoderInputIDs = inputIDs
	s.decoderHidden = hidden
	s.decoderUseCache = useCache
	s.decoderLogits = logits
	s.decoderKVIn = kvIn
	s.decoderKVOut = kvOut
	s.decoderSess = sess
	return nil
}

func (s *onnxSession) RunEncoder(audio []float32) ([]float32, error) {
	buf := s.encoderIn.GetData()
	for i := range buf {
		buf[i] = 0
	}
	n := len(audio)
	if n > maxAudioSamples {
		n = maxAudioSamples
	}
	copy(buf, audio[:n])

	if err := s.encoderSess.Run(); err != nil {
		return nil, fmt.Errorf("onnx: run encoder: %w", err)
	}

	out := s.encoderOut.GetData()
	hidden := make([]float32, len(out))
	copy(hidden, out)
	return hidden, nil
}

func (s *onnxSession) RunDecoder(prevToken int64, encoderHidden []float32, cache []KvEntry, step int) ([]float32, []KvEntry, error) {
	s.decoderInputIDs.GetData()[0] = prevToken
	copy(s.decoderHidden.GetData(), encoderHidden)
	s.decoderUseCache.GetData()[0] = step > 0

	for i, entry := range cache {
		copy(s.decoderKVIn[i].GetData(), entry.Data)
	}

	if err := s.decoderSess.Run(); err != nil {
		return nil, nil, fmt.Errorf("onnx: run decoder: %w", err)
	}

	logits := make([]float32, len(s.decoderLogits.GetData()))
	copy(logits, s.decoderLogits.GetData())

	next := make([]KvEntry, len(cache))
	copy(next, cache)
	for i, entry := range cache {
		if entry.Module != ModuleDecoder || s.decoderKVOut[i] == nil {
			continue
		}
		data := make([]float32, len(s.decoderKVOut[i].GetData()))
		copy(data, s.decoderKVOut[i].GetData())
		entry.Data = data
		next[i] = entry
	}

	return logits, next, nil
}

func (s *onnxSession) Close() error {
	if s.encoderSess != nil {
		s.encoderSess.Destroy()
	}
	if s.decoderSess != nil {
		s.decoderSess.Destroy()
	}
	if s.encoderIn != nil {
		s.encoderIn.Destroy()
	}
	if s.encoderOut != nil {
		s.encoderOut.Destroy()
	}
	if s.decoderInputIDs != nil {
		s.decoderInputIDs.Destroy()
	}
	if s.decoderHidden != nil {
		s.decoderHidden.Destroy()
	}
	if s.decoderUseCache != nil {
		s.decoderUseCache.Destroy()
	}
	if s.decoderLogits != nil {
		s.decoderLogits.Destroy()
	}
	for _, t := range s.decoderKVIn {
		if t != nil {
			t.Destroy()
		}
	}
	for _, t := range s.decoderKVOut {
		if t != nil {
			t.Destroy()
		}
	}
	return nil
}
