// Package receipt writes Markdown order receipts, one ledger file per month.
package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-ports/storefront/internal/models"
)

// StatusHeadings maps order statuses to their ledger headings.
var StatusHeadings = map[string]string{
	models.OrderPending:    "Pending",
	models.OrderPaid:       "Paid",
	models.OrderProcessing: "Processing",
	models.OrderShipped:    "Shipped",
	models.OrderDelivered:  "Delivered",
	models.OrderCancelled:  "Cancelled",
}

// RenderOrder produces the ### block for one order. names maps product IDs to
// display names; missing names fall back to "Product #<id>".
func RenderOrder(o *models.Order, names map[int64]string) string {
	var sb strings.Builder
	sb.WriteString(orderHeading(o.ID))
	sb.WriteString("\n**Status:** ")
	sb.WriteString(o.Status)
	sb.WriteString("\n**Total:** ")
	sb.WriteString(models.FormatPrice(o.TotalAmount))
	if o.CreatedAt != "" {
		sb.WriteString("\n**Placed:** ")
		sb.WriteString(o.CreatedAt)
	}
	if o.PaymentIntentID != nil && *o.PaymentIntentID != "" {
		sb.WriteString("\n**Payment:** ")
		sb.WriteString(*o.PaymentIntentID)
	}
	if len(o.Items) > 0 {
		sb.WriteString("\n\n| Product | Qty | Unit | Subtotal |\n|---|---:|---:|---:|")
		for _, it := range o.Items {
			name := names[it.ProductID]
			if name == "" {
				name = "Product #" + strconv.FormatInt(it.ProductID, 10)
			}
			line := models.CartLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
			fmt.Fprintf(&sb, "\n| %s | %d | %s | %s |",
				escapeCell(name), it.Quantity, models.FormatPrice(it.UnitPrice), models.FormatPrice(line.Subtotal()))
		}
	}
	return sb.String()
}

// Write creates or updates the <yyyy-mm>-orders.md ledger inside dir and
// returns its path. An order already present in the ledger is replaced, so
// re-saving after a status change moves it under the new heading.
func Write(dir string, o *models.Order, names map[int64]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("receipt.Write: %w", err)
	}
	month := monthOf(o.CreatedAt)
	filePath := filepath.Join(dir, month+"-orders.md")
	section := RenderOrder(o, names)

	var content string
	existing, err := os.ReadFile(filePath)
	switch {
	case os.IsNotExist(err):
		content = createLedger(o, month, section)
	case err != nil:
		return "", fmt.Errorf("receipt.Write: %w", err)
	default:
		content = updateLedger(string(existing), o, section)
	}

	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil { // #nosec G306 -- receipts hold no credentials
		return "", fmt.Errorf("receipt.Write: %w", err)
	}
	return filePath, nil
}

// ---------------------------------------------------------------------------
// File creation
// ---------------------------------------------------------------------------

func createLedger(o *models.Order, month, section string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("user_id: ")
	sb.WriteString(strconv.FormatInt(o.UserID, 10))
	sb.WriteString("\ncreated: ")
	sb.WriteString(time.Now().UTC().Format(time.RFC3339))
	sb.WriteString("\norders: [")
	sb.WriteString(strconv.FormatInt(o.ID, 10))
	sb.WriteString("]\n---\n\n# ")
	sb.WriteString(month)
	sb.WriteString(" Orders\n\n## ")
	sb.WriteString(heading(o.Status))
	sb.WriteString("\n\n")
	sb.WriteString(section)
	sb.WriteString("\n")
	return sb.String()
}

// ---------------------------------------------------------------------------
// File update
// ---------------------------------------------------------------------------

func updateLedger(content string, o *models.Order, section string) string {
	frontmatter, body := splitFrontmatter(content)
	body = removeOrder(body, o.ID)
	body = insertUnderStatus(body, o.Status, section)
	if frontmatter == "" {
		return body
	}
	return updateFrontmatter(frontmatter, o.ID) + "\n" + body
}

// splitFrontmatter splits YAML front-matter from the body.
// Returns ("", content) when no front-matter is detected.
func splitFrontmatter(content string) (frontmatter, body string) {
	parts := strings.SplitN(content, "---\n", 3)
	if len(parts) >= 3 {
		return "---\n" + parts[1] + "---", parts[2]
	}
	return "", content
}

var inlineArrayRe = regexp.MustCompile(`\[([^\]]*)\]`)

// updateFrontmatter adds id to the orders: list.
func updateFrontmatter(frontmatter string, id int64) string {
	lines := strings.Split(frontmatter, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "orders:") {
			continue
		}
		ids := []int64{id}
		if m := inlineArrayRe.FindStringSubmatch(line); m != nil {
			for _, s := range strings.Split(m[1], ",") {
				if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
					ids = append(ids, n)
				}
			}
		}
		lines[i] = "orders: [" + joinIDs(sortedUniq(ids)) + "]"
	}
	return strings.Join(lines, "\n")
}

// removeOrder drops the ### block of order id and any ## heading left empty.
func removeOrder(body string, id int64) string {
	target := orderHeading(id)
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if lines[i] != target {
			out = append(out, lines[i])
			continue
		}
		for i+1 < len(lines) && !strings.HasPrefix(lines[i+1], "### ") && !strings.HasPrefix(lines[i+1], "## ") {
			i++
		}
	}
	return dropEmptyHeadings(out)
}

func dropEmptyHeadings(lines []string) string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") {
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j == len(lines) || strings.HasPrefix(lines[j], "## ") {
				i = j - 1
				continue
			}
		}
		out = append(out, lines[i])
	}
	return collapseBlankLines(strings.Join(out, "\n"))
}

// insertUnderStatus appends section under the status heading, creating the
// heading in ValidOrderStatuses order when missing.
func insertUnderStatus(body, status, section string) string {
	h2 := "## " + heading(status)
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")

	for i, line := range lines {
		if line != h2 {
			continue
		}
		end := i + 1
		for end < len(lines) && !strings.HasPrefix(lines[end], "## ") {
			end++
		}
		block := trimTrailingBlank(lines[:end])
		merged := append(append(block[:len(block):len(block)], "", section, ""), lines[end:]...)
		return collapseBlankLines(strings.Join(merged, "\n"))
	}

	targetIdx := statusIndex(status)
	insertPos := len(lines)
	for i, line := range lines {
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		if statusIndex(statusOf(strings.TrimPrefix(line, "## "))) > targetIdx {
			insertPos = i
			break
		}
	}
	newBlock := []string{"", h2, "", section, ""}
	merged := append(append(lines[:insertPos:insertPos], newBlock...), lines[insertPos:]...)
	return collapseBlankLines(strings.Join(merged, "\n"))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func orderHeading(id int64) string {
	return "### Order #" + strconv.FormatInt(id, 10)
}

func heading(status string) string {
	if h, ok := StatusHeadings[status]; ok {
		return h
	}
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

func statusOf(h string) string {
	for s, v := range StatusHeadings {
		if v == h {
			return s
		}
	}
	return ""
}

func statusIndex(status string) int {
	for i, s := range models.ValidOrderStatuses {
		if s == status {
			return i
		}
	}
	return len(models.ValidOrderStatuses)
}

// monthOf returns the yyyy-mm prefix of an RFC 3339 timestamp, or the
// current month when ts cannot be parsed.
func monthOf(ts string) string {
	if len(ts) >= 7 {
		if _, err := time.Parse("2006-01", ts[:7]); err == nil {
			return ts[:7]
		}
	}
	return time.Now().UTC().Format("2006-01")
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, "\n") + "\n"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func sortedUniq(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
