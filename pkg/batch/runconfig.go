package batch

import (
	"fmt"

	"github.com/newtron-network/ifdesc/pkg/prompt"
	"github.com/newtron-network/ifdesc/pkg/util"
)

// JumpBoxConfig is the intermediate SSH host devices are reached through.
// All fields are set when a JumpBoxConfig exists.
type JumpBoxConfig struct {
	Host         string
	Username     string
	Password     string
	PromptEnding string
}

// PromptEndings returns the endings that identify the jump host prompt.
// Several can be given separated by commas, e.g. "$, #".
func (j *JumpBoxConfig) PromptEndings() []string {
	if endings := util.SplitCommaSeparated(j.PromptEnding); len(endings) > 0 {
		return endings
	}
	return []string{j.PromptEnding}
}

// RunConfig is resolved once per run and read-only afterwards.
type RunConfig struct {
	CheckMode bool
	JumpBox   *JumpBoxConfig // nil = connect directly
}

// ResolveRunConfig asks the operator for check mode and an optional jump
// box. ok is false when the operator cancelled the check mode question;
// the run must then end without side effects.
func ResolveRunConfig(p prompt.Prompter) (cfg RunConfig, ok bool) {
	switch p.YesNoCancel("Check Mode?", "Do you want to run this script in check mode? (Only save configs to a file)") {
	case prompt.Yes:
		cfg.CheckMode = true
	case prompt.No:
		cfg.CheckMode = false
	default:
		return RunConfig{}, false
	}

	if p.YesNo("Jumpbox?", "Will you be using a jump box?") == prompt.Yes {
		cfg.JumpBox = resolveJumpBox(p)
	}
	return cfg, true
}

// resolveJumpBox collects the four jump box values. Cancelling any of
// them abandons the jump box and devices are reached directly.
func resolveJumpBox(p prompt.Prompter) *JumpBoxConfig {
	var (
		jb JumpBoxConfig
		ok bool
	)
	if jb.Host, ok = p.Input("Enter the hostname or IP for the jump box", false); !ok {
		return nil
	}
	if jb.Username, ok = p.Input(fmt.Sprintf("Enter the USERNAME for %s", jb.Host), false); !ok {
		return nil
	}
	if jb.Password, ok = p.Input(fmt.Sprintf("Enter the PASSWORD for %s", jb.Username), true); !ok {
		return nil
	}
	if jb.PromptEnding, ok = p.Input(fmt.Sprintf("Enter the last character of the jumpbox CLI prompt (e.g. '$' for %s@%s:~$)", jb.Username, jb.Host), false); !ok {
		return nil
	}
	return &jb
}
