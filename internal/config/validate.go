// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Security.AuthMode == "jwt" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required when auth_mode is jwt")
	}
	// Both modes check the admin account: basic on every request, jwt at the
	// login endpoint.
	if c.Security.AuthMode != "none" && (c.Security.AdminUsername == "" || c.Security.AdminPassword == "") {
		return fmt.Errorf("security.admin_username and security.admin_password are required when auth_mode is %s", c.Security.AuthMode)
	}
	if c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size (%d) must not exceed api.max_page_size (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if !strings.HasPrefix(c.Jellyfin.URL, "http://") && !strings.HasPrefix(c.Jellyfin.URL, "https://") {
		return fmt.Errorf("jellyfin.url must start with http:// or https://")
	}

	return nil
}
