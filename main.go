package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"murmur/audio"
	"murmur/doctor"
	"murmur/log"
	"murmur/normalize"
	"murmur/record"
	"murmur/shutdown"
)

var version = "dev"

func main() {
	listFlag := flag.Bool("list", false, "List capture devices and exit")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	deviceFlag := flag.String("device", audio.DefaultDeviceName, "Capture device name")
	normalizeFlag := flag.String("normalize", "", "Convert an audio file to mono 16kHz WAV and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	rateFlag := flag.Uint("rate", 0, "Preferred capture sample rate in Hz (0 = 16000 or nearest supported)")
	outFlag := flag.String("out", ".", "Directory for recorded WAV files")
	idFlag := flag.String("id", "", "Recording ID (default: random UUID)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if *normalizeFlag != "" {
		outPath, err := normalize.File(*normalizeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(outPath)
		return
	}

	host, err := audio.NewHost()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	dir := audio.NewManager(host)
	defer dir.Close()

	if *listFlag {
		names, err := dir.Enumerate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(names) == 0 {
			fmt.Println("No capture devices found.")
			return
		}
		for _, name := range names {
			if audio.IsBluetooth(name) {
				fmt.Printf("%s (bluetooth)\n", name)
				continue
			}
			fmt.Println(name)
		}
		return
	}

	deviceName := *deviceFlag
	if *setupFlag {
		deviceName, err = audio.SelectDevice(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	recordingID := *idFlag
	if recordingID == "" {
		recordingID = uuid.NewString()
	}

	streamHost, err := audio.NewHost()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	session := record.NewSession(streamHost, dir)
	defer session.Close()

	if err := session.Init(deviceName, *outFlag, recordingID, uint32(*rateFlag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := session.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recording %s. Press Enter or Ctrl+C to stop.\n", recordingID)

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	enterChan := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enterChan)
	}()

	select {
	case <-sigChan:
		fmt.Println()
	case <-enterChan:
	}

	rec, err := session.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	session.Close()

	fmt.Printf("Saved %s\n", rec.Path)
	fmt.Printf("  %.2fs at %d Hz, %d channel(s)\n", rec.Duration, rec.SampleRate, rec.Channels)
}
