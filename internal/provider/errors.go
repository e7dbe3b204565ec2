// Copyright (c) 2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
package provider

// In this file: the error taxonomy of the workspace access layer.

import (
	"fmt"
	"strings"
)

// MissingCredentialsError is returned on startup when one or both
// credential slots are empty.  Slots enumerates every missing slot, in
// primary-then-elevated order.
type MissingCredentialsError struct {
	Slots []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("both %s and %s credentials are required, missing: %s",
		SlotPrimary, SlotElevated, strings.Join(e.Slots, ", "))
}

// AuthRejectedError is returned on startup when a credential is present,
// but the remote service rejects it.
type AuthRejectedError struct {
	Slot string
	Err  error
}

func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("authentication failed for the %s credential: %s", e.Slot, e.Err)
}

func (e *AuthRejectedError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a reference cannot be resolved to a
// canonical ID.  Ref carries the original reference verbatim.
type NotFoundError struct {
	Kind string // "channel" or "user"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

// InvalidClassError is returned by the credential selector for any value
// outside the two recognised token classes.
type InvalidClassError struct {
	Value string
}

func (e *InvalidClassError) Error() string {
	return fmt.Sprintf("invalid token type %q: must be %q or %q", e.Value, ClassPrimary, ClassElevated)
}

// InvalidLimitError is returned when a limit expression matches neither a
// count, nor a relative window, nor a pagination cursor.
type InvalidLimitError struct {
	Value string
}

func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("invalid limit %q: use a duration like '1d', '1w', '30d', '90d', a number like '50', or a pagination cursor", e.Value)
}

// NameError is returned when a requested channel name fails local
// validation, before any remote call is made.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid channel name %q: %s", e.Name, e.Reason)
}

// NotManagedError is returned when a channel with the requested name
// exists but was not created by this tool, so it cannot be adopted.
type NotManagedError struct {
	Name string
	ID   string
}

func (e *NotManagedError) Error() string {
	return fmt.Sprintf("channel %q (%s) already exists and is not managed by this tool", e.Name, e.ID)
}
