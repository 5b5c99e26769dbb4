package cli

import (
	"fmt"
	"sort"
)

func (c *CLI) printHelp(command string) {
	if command == "" {
		fmt.Fprintln(c.Out, "Available commands:")
		names := make([]string, 0, len(commandHelp))
		for name := range commandHelp {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(c.Out, "  %s\n", name)
		}
		fmt.Fprintln(c.Out, "\nUse 'help <command>' for more information about a specific command.")
	} else if help, ok := commandHelp[command]; ok {
		fmt.Fprintln(c.Out, help)
	} else {
		fmt.Fprintf(c.Out, "Unknown command: %s\n", command)
	}
}

// commandHelp contains help text for each command.
var commandHelp = map[string]string{
	"login": `Syntax: login <username> [password]
Description: Signs in. Prompts for the password when it is omitted.`,

	"signup": `Syntax: signup <username> <email> [password]
Description: Creates an account on the backend.`,

	"logout": `Syntax: logout
Description: Forgets the stored tokens and reloads the points visible without an account.`,

	"tap": `Syntax: tap <latitude> <longitude>
Description: Taps the map. Offers "add" at that spot for a few seconds.
Example: tap -37.8136 144.9631`,

	"add": `Syntax: add
Description: Starts a new point at the pending location.`,

	"select": `Syntax: select <point id>
Description: Opens the detail panel of a loaded point.`,

	"set": `Syntax: set <field> <value>
Description: Edits the open draft or edit form.
- <field>: title, description, tag, latitude, longitude or public.
Example: set title "Best dumplings"`,

	"attach": `Syntax: attach <file>
Description: Adds a PDF, JPEG or PNG file to the draft.`,

	"submit": `Syntax: submit
Description: Saves the open draft or edit form.`,

	"edit": `Syntax: edit
Description: Opens the edit form for the viewed point you own.`,

	"cancel": `Syntax: cancel
Description: Dismisses the open dialog, leaves the edit form or closes the panel.`,

	"delete": `Syntax: delete
Description: Asks to delete the viewed point you own.`,

	"yes": `Syntax: yes
Description: Confirms the open dialog.`,

	"no": `Syntax: no
Description: Cancels the open dialog.`,

	"close": `Syntax: close
Description: Closes the side panel. Asks first when a draft has input.`,

	"filter": `Syntax: filter <tag>
Description: Toggles a tag filter. Tags: food, event, school, photo, music.`,

	"filters": `Syntax: filters [open|close|apply|reset|stage <tag>]
Description: Shows the filters or drives the filter menu.`,

	"mode": `Syntax: mode [map|list]
Description: Switches between the map and the list. Toggles when omitted.`,

	"more": `Syntax: more
Description: Loads the next page of the list.`,

	"retry": `Syntax: retry
Description: Repeats the last failed page request.`,

	"refresh": `Syntax: refresh
Description: Reloads the first page. Points you created stay listed.`,

	"move": `Syntax: move <latitude> <longitude> [zoom]
Description: Moves the map camera.`,

	"recenter": `Syntax: recenter
Description: Flies the camera to your location.`,

	"react": `Syntax: react
Description: Toggles your heart on the viewed point.`,

	"comment": `Syntax: comment <text>
Description: Comments on the viewed point.`,

	"dismiss": `Syntax: dismiss <notice id>
Description: Dismisses a notice.`,

	"show": `Syntax: show
Description: Prints the current map, panel and notices.`,

	"url": `Syntax: url
Description: Prints the address bar query.`,

	"exit": `Syntax: exit
Description: Quits.`,
}
