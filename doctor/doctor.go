// Package doctor runs end-to-end diagnostics against the real audio
// stack: host, device directory, a short capture and the normalizer.
package doctor

import (
	"context"
	"fmt"
	"os"
	"time"

	"murmur/audio"
	"murmur/normalize"
	"murmur/record"
	"murmur/transcriber"
	"murmur/wav"
)

// Run executes the diagnostic checks and returns an exit code (0=all
// pass, 1=any fail).
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("murmur doctor - system diagnostics")
	fmt.Println("==================================")

	allPass := true

	host, ok := checkHost()
	if !ok {
		allPass = false
	}
	if allPass {
		dir := audio.NewManager(host)
		defer dir.Close()

		if !checkDirectory(dir) {
			allPass = false
		}

		var recording []byte
		if allPass {
			recording, ok = checkCapture(dir)
			if !ok {
				allPass = false
			}
		}
		if allPass && !checkNormalizer(recording) {
			allPass = false
		}
	}
	// Advisory only: in-process conversion covers WAV and FLAC.
	checkFFmpeg()

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkHost() (audio.Host, bool) {
	fmt.Println()
	fmt.Println("[1/5] Audio host")

	host, err := audio.NewHost()
	if err != nil {
		fmt.Printf("  FAIL: cannot initialize audio backend: %v\n", err)
		return nil, false
	}
	fmt.Println("  PASS: audio backend initialized")
	return host, true
}

func checkDirectory(dir *audio.Manager) bool {
	fmt.Println()
	fmt.Println("[2/5] Capture devices")

	names, err := dir.Enumerate()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(names) == 0 {
		fmt.Println("  FAIL: no usable capture devices found")
		return false
	}
	for _, name := range names {
		fmt.Printf("    - %s\n", name)
	}

	dev, err := dir.Resolve(audio.DefaultDeviceName)
	if err != nil {
		fmt.Printf("  FAIL: cannot resolve default device: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %d device(s), default is %q\n", len(names), dev.Name)
	return true
}

func checkCapture(dir *audio.Manager) ([]byte, bool) {
	fmt.Println()
	fmt.Println("[3/5] One-second capture")

	tmpDir, err := os.MkdirTemp("", "murmur-doctor-")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	defer os.RemoveAll(tmpDir)

	host, err := audio.NewHost()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	session := record.NewSession(host, dir)
	defer session.Close()

	if err := session.Init(audio.DefaultDeviceName, tmpDir, "doctor", 0); err != nil {
		fmt.Printf("  FAIL: cannot open capture stream: %v\n", err)
		return nil, false
	}
	if err := session.Start(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}

	fmt.Print("  Recording")
	for i := 0; i < 4; i++ {
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" done")

	rec, err := session.Stop()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	session.Close()

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	info, err := wav.Probe(data)
	if err != nil {
		fmt.Printf("  FAIL: recorded file is malformed: %v\n", err)
		return nil, false
	}
	if info.SampleRate != rec.SampleRate || info.Channels != rec.Channels {
		fmt.Printf("  FAIL: header (%d Hz, %d ch) disagrees with session (%d Hz, %d ch)\n",
			info.SampleRate, info.Channels, rec.SampleRate, rec.Channels)
		return nil, false
	}
	if rec.Duration < 0.5 {
		fmt.Printf("  FAIL: captured only %.2fs of audio\n", rec.Duration)
		return nil, false
	}

	fmt.Printf("  PASS: %.2fs at %d Hz, %d ch\n", rec.Duration, rec.SampleRate, rec.Channels)
	return data, true
}

func checkNormalizer(recording []byte) bool {
	fmt.Println()
	fmt.Println("[4/5] Normalizer contract")

	canonical, err := normalize.ToCanonical(recording)
	if err != nil {
		fmt.Printf("  FAIL: conversion error: %v\n", err)
		return false
	}
	info, err := wav.Probe(canonical)
	if err != nil || !info.Canonical() {
		fmt.Printf("  FAIL: output is not mono 16 kHz 16-bit PCM: %+v\n", info)
		return false
	}

	samples, err := normalize.Samples(canonical)
	if err != nil {
		fmt.Printf("  FAIL: sample extraction: %v\n", err)
		return false
	}

	engine := transcriber.NewFake("ok", nil)
	if _, err := engine.Transcribe(context.Background(), samples); err != nil {
		fmt.Printf("  FAIL: engine rejected canonical audio: %v\n", err)
		return false
	}
	fed := engine.Fed()
	if len(fed) != 1 || len(fed[0]) != len(samples) {
		fmt.Println("  FAIL: engine did not receive the full sample buffer")
		return false
	}

	fmt.Printf("  PASS: %d canonical samples delivered to engine\n", len(samples))
	return true
}

func checkFFmpeg() bool {
	fmt.Println()
	fmt.Println("[5/5] ffmpeg fallback")

	if !normalize.FFmpegAvailable() {
		fmt.Println("  WARN: ffmpeg not found in PATH")
		fmt.Println("  Non-WAV/FLAC input will fail to convert. Install ffmpeg to enable the fallback.")
		return false
	}
	fmt.Println("  PASS: ffmpeg found")
	return true
}
