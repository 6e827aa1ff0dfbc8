package bot

import (
	"strconv"
	"strings"

	"campus-eats/models"
	"campus-eats/services"
)

// formKind is a multi-step text flow: each message answers the current prompt.
type formKind int

const (
	formSignIn formKind = iota
	formSignUp
	formDish
	formCredential
	formRestaurant
	formEmployee
)

type formDef struct {
	title   string
	prompts []string
	secret  map[int]bool // steps whose message is deleted after reading
}

var formDefs = map[formKind]formDef{
	formSignIn:     {title: "📧 Sign in", prompts: []string{"Email:", "Password:"}, secret: map[int]bool{1: true}},
	formSignUp:     {title: "🆕 Sign up", prompts: []string{"Email:", "Password (at least 6 characters):"}, secret: map[int]bool{1: true}},
	formDish:       {title: "➕ New dish", prompts: []string{"Dish name:", "Price in ₹:", "Description (or - to skip):"}},
	formCredential: {title: "🔑 Add Credential", prompts: []string{"Name:", "Roll number:", "Role (manager, hosteller or dayscholar):"}},
	formRestaurant: {title: "🏪 Add Restaurant", prompts: []string{"Restaurant name:", "Type (e.g. Snacks):", "Description (or - to skip):"}},
	formEmployee:   {title: "➕ Add Employee", prompts: []string{"Name:", "Role:", "Shift:"}},
}

type form struct {
	kind   formKind
	values []string

	restaurantID string // formDish
	section      string // formDish
}

func newForm(kind formKind) *form { return &form{kind: kind} }

func (f *form) def() formDef { return formDefs[f.kind] }

func (f *form) done() bool { return len(f.values) >= len(f.def().prompts) }

// prompt is the question for the next answer.
func (f *form) prompt() string {
	if f.done() {
		return ""
	}
	return f.def().prompts[len(f.values)]
}

// secretStep reports whether the next answer should be removed from the chat.
func (f *form) secretStep() bool { return f.def().secret[len(f.values)] }

// accept records one answer and reports whether the form is complete.
func (f *form) accept(text string) bool {
	if !f.done() {
		f.values = append(f.values, strings.TrimSpace(text))
	}
	return f.done()
}

func (f *form) value(i int) string {
	if i >= len(f.values) {
		return ""
	}
	v := f.values[i]
	if v == "-" {
		return ""
	}
	return v
}

// dish reads a completed formDish. A price that is not a whole number reads as zero.
func (f *form) dish() models.Dish {
	price, _ := strconv.ParseInt(strings.TrimPrefix(f.value(1), "₹"), 10, 64)
	return models.Dish{Name: f.value(0), Price: price, Description: f.value(2)}
}

func (f *form) credential() models.Credential {
	role := strings.ToLower(strings.ReplaceAll(f.value(2), " ", ""))
	return models.Credential{Name: f.value(0), Roll: f.value(1), Role: models.Role(role)}
}

func (f *form) restaurant() services.RestaurantInput {
	return services.RestaurantInput{Name: f.value(0), Type: f.value(1), Description: f.value(2)}
}

func (f *form) employee() models.Employee {
	return models.Employee{Name: f.value(0), Role: f.value(1), Shift: f.value(2)}
}

// parseNameRoll splits "Name, Roll" from the login prompt.
func parseNameRoll(text string) (name, roll string, ok bool) {
	name, roll, ok = strings.Cut(text, ",")
	name, roll = strings.TrimSpace(name), strings.TrimSpace(roll)
	return name, roll, ok && name != "" && roll != ""
}

// parseEmailCommand reads "/signin email password".
func parseEmailCommand(text string) (email, password string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return "", "", false
	}
	return fields[1], fields[2], true
}
