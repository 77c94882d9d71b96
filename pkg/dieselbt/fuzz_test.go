// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

package dieselbt

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// requireTypedError fails the round unless the decode error is one of
// the codec's exported error types.
func requireTypedError(t *testing.T, round int, err error) {
	var unknown *UnknownProtocolError
	var decode *DecodeError
	if errors.Is(err, ErrCommandAck) || errors.As(err, &unknown) || errors.As(err, &decode) {
		return
	}
	t.Errorf("Round %d: untyped error from Decode: %v", round, err)
}

// TestFuzzClassify_RandomBytes feeds random byte sequences to Classify
// and verifies it stays total: every input yields a variant or a
// typed error, never a panic.
func TestFuzzClassify_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(64)
		data := make([]byte, length)
		rng.Read(data)

		variant, _, err := Classify(data)
		if err != nil {
			if !errors.Is(err, ErrCommandAck) {
				var unknown *UnknownProtocolError
				if !errors.As(err, &unknown) {
					t.Errorf("Round %d: untyped error from Classify: %v", i, err)
				}
			}
			continue
		}
		if variant == VariantUnknown {
			t.Errorf("Round %d: nil error with unknown variant", i)
		}
	}
}

// TestFuzzDecode_RandomBytes feeds random byte sequences to Decode and
// verifies it doesn't crash or panic
func TestFuzzDecode_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(64)
		data := make([]byte, length)
		rng.Read(data)

		rec, err := Decode(frame(data))
		if err != nil {
			requireTypedError(t, i, err)
			continue
		}
		if rec == nil {
			t.Errorf("Round %d: nil record with nil error", i)
		}
	}
}

// TestFuzzDecode_CorruptedFrames starts from valid frames of every
// variant and corrupts a random byte after the header. The decoder may
// reject the frame but must return a typed error and never panic.
func TestFuzzDecode_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	builders := [][]byte{
		sampleAA55,
		makeAA66(),
		makeABBA(),
		makeCBFF(),
		Encrypt(makeEncryptedPlain(HeaderAA55)),
		Encrypt(makeEncryptedPlain(HeaderAA66)),
	}

	for i := 0; i < rounds; i++ {
		data := append([]byte(nil), builders[rng.Intn(len(builders))]...)
		corruptIdx := rng.Intn(len(data)-2) + 2 // keep the header intact
		data[corruptIdx] ^= byte(rng.Intn(255) + 1)

		rec, err := Decode(frame(data))
		if err != nil {
			requireTypedError(t, i, err)
			continue
		}
		if rec == nil {
			t.Errorf("Round %d: nil record with nil error", i)
		}
	}
}

// TestFuzzDecode_TruncatedFrames verifies every prefix of a valid
// frame either decodes or is rejected with a typed error.
func TestFuzzDecode_TruncatedFrames(t *testing.T) {
	builders := [][]byte{
		sampleAA55,
		makeAA66(),
		makeABBA(),
		makeCBFF(),
		Encrypt(makeEncryptedPlain(HeaderAA55)),
	}

	for _, full := range builders {
		for n := 0; n <= len(full); n++ {
			rec, err := Decode(frame(full[:n]))
			if err != nil {
				requireTypedError(t, n, err)
				continue
			}
			if rec == nil {
				t.Errorf("length %d: nil record with nil error", n)
			}
		}
	}
}
