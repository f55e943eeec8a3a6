// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	SourceImap   = "imap"
	SourceFolder = "folder"
)

type Config struct {
	Database string

	Redis         string
	RedisPassword string
	RedisDB       int

	Source string

	ImapHost string
	User     string
	Password string
	Folders  []string

	MailFolder string

	ModelHost    string
	ModelName    string
	UseModel     bool
	ModelTimeout duration
	WaitForModel bool

	PolicyFile string

	BatchSize     int
	BatchPause    duration
	MaxCandidates int

	Quick         bool
	GroupBySender bool
	Unsubscribe   bool
	DryRun        bool

	Loglevel *string
}

// duration reads "2s" style strings.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func ReadConfig(filename string) (*Config, error) {
	config := &Config{
		Database:     "persistence.db",
		Source:       SourceImap,
		Folders:      []string{"INBOX"},
		ModelHost:    "http://localhost:11434",
		ModelName:    "llama3.2",
		UseModel:     true,
		ModelTimeout: duration{2 * time.Second},
		BatchSize:    5,
		BatchPause:   duration{200 * time.Millisecond},
		DryRun:       true,
	}

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if len(strings.TrimSpace(c.Redis)) == 0 {
		if err := validateNonEmptyStringField(c.Database, "Database name must not be empty, set to a filename for the sqlite database or set Redis"); err != nil {
			return err
		}
	}

	switch c.Source {
	case SourceImap:
		if err := validateNonEmptyStringField(c.ImapHost, "ImapHost must not be empty, set to host:port of the imap server"); err != nil {
			return err
		}

		if err := validateNonEmptyStringField(c.User, "User must not be empty, set to username on the imap server"); err != nil {
			return err
		}

		if err := validateNonEmptyStringField(c.Password, "Password must not be empty, set to password of User on the imap server"); err != nil {
			return err
		}

		if len(c.Folders) == 0 {
			return fmt.Errorf("Folders must not be empty, set to the imap folders to scan")
		}
	case SourceFolder:
		if err := validateNonEmptyStringField(c.MailFolder, "MailFolder must not be empty, set to a directory containing .eml files"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown Source %q, use %q or %q", c.Source, SourceImap, SourceFolder)
	}

	if c.UseModel && !c.Quick {
		if err := validateNonEmptyStringField(c.ModelHost, "ModelHost must not be empty if UseModel is set"); err != nil {
			return err
		}

		if err := validateNonEmptyStringField(c.ModelName, "ModelName must not be empty if UseModel is set"); err != nil {
			return err
		}

		if c.ModelTimeout.Duration <= 0 {
			return fmt.Errorf("ModelTimeout must be positive")
		}
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("BatchSize must be positive")
	}
	if c.BatchPause.Duration < 0 {
		return fmt.Errorf("BatchPause cannot be negative")
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("MaxCandidates cannot be negative")
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
