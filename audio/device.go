package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// SelectDevice presents an interactive device picker over the directory's
// current view and returns the chosen device name. With a single device it
// returns that device without prompting.
func SelectDevice(m *Manager) (string, error) {
	names, err := m.Enumerate()
	if err != nil {
		return "", fmt.Errorf("enumerating devices: %w", err)
	}

	if len(names) == 0 {
		return "", fmt.Errorf("no capture devices found")
	}

	if len(names) == 1 {
		return names[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("setting raw mode: %w", err)
	}

	defer term.Restore(fd, oldState)

	cursor := 0
	renderList := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select input device (↑/↓, Enter to confirm):\r\n\r\n")
		for i, name := range names {
			btTag := ""
			if IsBluetooth(name) {
				btTag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", name, btTag)
			} else {
				fmt.Printf("    %s%s\r\n", name, btTag)
			}
		}
	}

	renderList()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}

		if n == 1 {
			switch buf[0] {
			case 13: // Enter
				fmt.Print("\r\n")
				term.Restore(fd, oldState)
				return names[cursor], nil
			case 3: // Ctrl+C
				fmt.Print("\r\n")
				term.Restore(fd, oldState)
				os.Exit(130)
			case 'j': // vim down
				if cursor < len(names)-1 {
					cursor++
				}
			case 'k': // vim up
				if cursor > 0 {
					cursor--
				}
			}
		} else if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'A': // Up arrow
				if cursor > 0 {
					cursor--
				}
			case 'B': // Down arrow
				if cursor < len(names)-1 {
					cursor++
				}
			}
		}

		lines := len(names) + 2
		fmt.Printf("\x1b[%dA", lines)
		renderList()
	}
}
