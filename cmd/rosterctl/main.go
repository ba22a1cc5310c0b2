// Command rosterctl is a minimal terminal client: it logs in, pulls the
// member directory, and prints it as a table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"rosterd/pkg/client"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "rosterd server base URL")
	user := flag.String("user", "admin", "operator username")
	pass := flag.String("pass", "", "operator password (or ROSTERD_PASSWORD)")
	flag.Parse()

	password := *pass
	if password == "" {
		password = os.Getenv("ROSTERD_PASSWORD")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "missing password: use -pass or ROSTERD_PASSWORD")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := client.New(*addr)
	if err != nil {
		fail(err)
	}
	if err := session.Login(ctx, *user, password); err != nil {
		fail(fmt.Errorf("login: %w", err))
	}
	defer session.Logout(context.Background())

	members, err := session.Members(ctx)
	if err != nil {
		fail(fmt.Errorf("fetch directory: %w", err))
	}
	printMembers(members)
}

func printMembers(members []client.Member) {
	if len(members) == 0 {
		fmt.Println("directory is empty")
		return
	}

	// Stable column order across rows.
	columns := make([]string, 0, len(members[0]))
	for name := range members[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	fmt.Println(strings.Join(columns, "\t"))
	for _, m := range members {
		row := make([]string, len(columns))
		for i, name := range columns {
			row[i] = m[name]
		}
		fmt.Println(strings.Join(row, "\t"))
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "rosterctl:", err)
	os.Exit(1)
}
