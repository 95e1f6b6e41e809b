// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/streamchat/internal/backend"
)

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(opts)
			defer a.Close()

			if a.identity == nil {
				return &UsageError{Message: "identity lookup is disabled (identity.enabled = false)"}
			}
			admin, err := a.identity.Current(cmd.Context())
			if err != nil {
				return NewCommandError("whoami", "lookup failed", err)
			}
			if opts.jsonMode {
				return NewJSONResponse("whoami", admin).Print(cmd.OutOrStdout())
			}
			printAdmin(cmd.OutOrStdout(), admin)
			return nil
		},
	}
}

func printAdmin(w io.Writer, admin *backend.Admin) {
	fmt.Fprintln(w, TitleStyle.Render(admin.DisplayName()))
	fmt.Fprintln(w, RenderField("Email:", orDash(admin.Email)))
	if admin.Mobile != nil {
		fmt.Fprintln(w, RenderField("Mobile:", *admin.Mobile))
	}
	active := "no"
	if admin.IsActive {
		active = "yes"
	}
	fmt.Fprintln(w, RenderField("Active:", active))

	roles := make([]string, 0, len(admin.Roles))
	for _, r := range admin.Roles {
		roles = append(roles, r.Name)
	}
	fmt.Fprintln(w, RenderField("Roles:", orDash(strings.Join(roles, ", "))))

	perms := make([]string, 0, len(admin.PermissionMap))
	for p, ok := range admin.PermissionMap {
		if ok {
			perms = append(perms, p)
		}
	}
	sort.Strings(perms)
	fmt.Fprintln(w, RenderField("Permissions:", orDash(strings.Join(perms, ", "))))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
