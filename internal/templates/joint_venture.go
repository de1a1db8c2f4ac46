package templates

import (
	"fmt"
	"strings"
)

func init() {
	register(&Template{
		ID:          JointVenture,
		Name:        "Joint Venture Agreement",
		Description: "Two partners pooling capital to acquire and manage a property.",
		Fields: append(commonFields("Partner One", "Partner Two"),
			Field{Key: "capitalContributionOne", Label: "Partner One Contribution", Placeholder: "[AMOUNT]"},
			Field{Key: "capitalContributionTwo", Label: "Partner Two Contribution", Placeholder: "[AMOUNT]"},
			Field{Key: "profitSplitOne", Label: "Partner One Profit Share", Placeholder: "[PERCENT]"},
			Field{Key: "profitSplitTwo", Label: "Partner Two Profit Share", Placeholder: "[PERCENT]"},
			Field{Key: "managingPartner", Label: "Managing Partner", Placeholder: "[MANAGING PARTNER]"},
			Field{Key: "exitStrategy", Label: "Exit Strategy", Placeholder: "[EXIT STRATEGY]"},
			Field{Key: "ventureTerm", Label: "Venture Term", Placeholder: "[TERM]"},
		),
		render: renderJointVenture,
	})
}

func renderJointVenture(v values) string {
	var b strings.Builder

	fmt.Fprintf(&b, "JOINT VENTURE AGREEMENT\n\n")
	fmt.Fprintf(&b, "This Joint Venture Agreement is entered into on %s by %s (\"Partner One\") and %s (\"Partner Two\").\n\n",
		v.get("date"), v.get("partyOne"), v.get("partyTwo"))

	fmt.Fprintf(&b, "1. PURPOSE\nThe partners form this venture to acquire, improve and operate the property located at %s.\n\n",
		v.get("propertyAddress"))
	fmt.Fprintf(&b, "2. CAPITAL CONTRIBUTIONS\nPartner One contributes %s. Partner Two contributes %s.\n\n",
		v.get("capitalContributionOne"), v.get("capitalContributionTwo"))
	fmt.Fprintf(&b, "3. PROFIT AND LOSS\nNet profits and losses are shared %s to Partner One and %s to Partner Two.\n\n",
		v.get("profitSplitOne"), v.get("profitSplitTwo"))
	fmt.Fprintf(&b, "4. MANAGEMENT\n%s shall manage day-to-day operations of the venture.\n\n", v.get("managingPartner"))
	fmt.Fprintf(&b, "5. TERM\nThe venture continues for %s unless dissolved earlier by written agreement.\n\n",
		v.get("ventureTerm"))
	fmt.Fprintf(&b, "6. EXIT STRATEGY\n%s\n\n", v.get("exitStrategy"))
	fmt.Fprintf(&b, "7. ADDITIONAL TERMS\n%s\n", v.get("terms"))

	signatureBlock(&b, v, "Partner One", "Partner Two")
	return b.String()
}
