// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/link"
	"github.com/git1k2/keybow2040-cat/pkg/session"
	"golang.org/x/term"
)

// PasswordEnv holds the bridge password for non-interactive use
const PasswordEnv = "KEYBOW_CAT_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenConnection opens the radio link described by the effective settings
func OpenConnection() (link.Transport, error) {
	r := settings.Radio
	opts := link.Options{
		Port:        r.Port,
		Baud:        r.Baud,
		URL:         r.URL,
		Username:    r.Username,
		NoSSLVerify: r.NoSSLVerify,
		ReadTimeout: settings.ReadTimeout(),
	}

	if r.URL != "" && r.Username != "" {
		password, err := GetPassword()
		if err != nil {
			return nil, err
		}
		opts.Password = password
	}

	if r.URL == "" && r.Port == "" {
		return nil, fmt.Errorf("either --port or --url must be specified")
	}
	return link.Open(opts)
}

// openSession opens the radio link and wraps it in a CAT session
func openSession() (*session.Session, link.Transport, error) {
	conn, err := OpenConnection()
	if err != nil {
		return nil, nil, err
	}
	s := session.New(conn, cat.FTdx10(), session.WithHandshakeBackoff(settings.HandshakeBackoff()))
	return s, conn, nil
}
