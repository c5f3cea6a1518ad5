// Command tokenvault stores a Graph API access token in an encrypted
// credentials file, and can decrypt one for inspection. The server reads the
// file at startup when FACEBOOK_TOKEN_FILE is set.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/psa231093/fbrelay/pkg/crypto"
)

func main() {
	encryptPath := flag.String("encrypt", "", "Write an encrypted token file at this path")
	decryptPath := flag.String("decrypt", "", "Print the token stored in this file")
	flag.Parse()

	switch {
	case *encryptPath != "":
		if err := encryptToken(*encryptPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case *decryptPath != "":
		if err := decryptToken(*decryptPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func encryptToken(path string) error {
	fmt.Print("Access token: ")
	reader := bufio.NewReader(os.Stdin)
	token, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}

	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	if err := crypto.EncryptToFile(path, []byte(token), passphrase); err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	fmt.Printf("token written to %s\n", path)
	return nil
}

func decryptToken(path string) error {
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		return err
	}

	token, err := crypto.DecryptFile(path, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	fmt.Println(strings.TrimSpace(string(token)))
	return nil
}

// readPassphrase prompts without echoing when stdin is a terminal.
func readPassphrase(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimSpace(line), nil
}
