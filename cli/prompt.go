package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"guideboard/editor"
	"guideboard/guide"
)

// prompter pone le domande dei punti di decisione sul terminale
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newPrompter(in io.Reader, out io.Writer, yes bool) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, yes: yes}
}

func (p *prompter) ask(question string) string {
	printf(p.out, "%s ", question)
	line, _ := p.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (p *prompter) confirm(question string) guide.Choice {
	if p.yes {
		return guide.Confirm
	}
	switch strings.ToLower(p.ask(question + " [s/N]")) {
	case "s", "si", "sì", "y", "yes":
		return guide.Confirm
	}
	return guide.Decline
}

// editorConfirmer risponde alle domande dell'editor
func (p *prompter) editorConfirmer() editor.Confirmer {
	return func(q editor.Question) guide.Choice {
		return p.confirm(q.String())
	}
}

// transferDecider chiede se spostare una sezione già collegata nella nuova catena
func (p *prompter) transferDecider() guide.Decider {
	return func(q guide.TransferQuestion) guide.Choice {
		return p.confirm("La sezione \"" + q.Title + "\" è già nella catena " + q.FromLink + ". Spostarla?")
	}
}

// nameChooser chiede un nuovo nome quando quello del backup è occupato o non valido
func (p *prompter) nameChooser() guide.NameChooser {
	return func(rejected string, reason error) (string, bool) {
		question := "Il backup non indica un nome utente. Nome (vuoto per annullare):"
		switch {
		case errors.Is(reason, guide.ErrUsernameTaken):
			question = "L'utente \"" + rejected + "\" esiste già. Nuovo nome (vuoto per annullare):"
		case reason != nil:
			question = "Il nome \"" + rejected + "\" non è valido (solo lettere, numeri, _ e -). Nuovo nome (vuoto per annullare):"
		}
		name := p.ask(question)
		return name, name != ""
	}
}
