package analysis

import (
	"strings"
	"text/template"

	"github.com/alan-christopher/qkdsim/qkd"
	"github.com/alan-christopher/qkdsim/qkd/photon"
)

var funcs = template.FuncMap{
	"percent": func(f float64) float64 { return f * 100 },
	"depolarizing": func(m photon.NoiseModel) bool {
		return m == photon.Depolarizing
	},
}

const paramsBlock = `**Simulation Parameters:**
- {{.CountLabel}}: {{.Params.QubitCount}}
- Rectilinear (+) basis selection: {{.Params.RectilinearBasisPercent}}%
- Eavesdropping by Eve: {{.Params.EavesdropPercent}}%
- Channel noise model: {{if depolarizing .Params.NoiseModel}}depolarizing channel{{else}}simple bit-flip error{{end}}
- {{if depolarizing .Params.NoiseModel}}Depolarization probability{{else}}Intrinsic channel error rate (QBER){{end}}: {{.Params.QBERPercent}}%

**Simulation Results:**
- Sifted key length: {{.Result.SiftedKeyLength}}
- Measured quantum bit error rate: {{printf "%.2f" (percent .Result.MeasuredQBER)}}%
- Estimated secure final key length: {{.Result.FinalKeyLength}}
`

const answerFormat = `**Format your response as a single JSON object with two keys: "textual" and "mathematical". Do not include any text outside the JSON object.**`

var bb84Prompt = template.Must(template.New("bb84").Funcs(funcs).Parse(`
You are a quantum communication expert providing analysis for a Quantum Key Distribution (QKD) simulator in {{.Language}}.
Analyze the following BB84 protocol simulation results.

**Protocol:** BB84

` + paramsBlock + `
**Your Tasks (respond in {{.Language}}):**

1. **Textual Analysis:**
   - Provide a step-by-step explanation of what happened in this BB84 simulation. Use Markdown for formatting.
   - Explain why the sifted key length is approximately 50% of the initial qubit count.
   - Analyze the measured QBER. Explain how Eve's eavesdropping and the channel noise model contributed to the error rate.
   - Based on the selected noise model ({{.Params.NoiseModel}}), explain its physical meaning. If it is Depolarizing, contrast it with the simpler SimpleQBER (bit-flip) model and discuss why it might be a more realistic simulation of environmental decoherence.
   - If the measured QBER is high (> 11-15%), explain that Alice and Bob would detect Eve and abort.
   - Discuss the security of the final key.
   - Enclose any mathematical formulas in LaTeX syntax ($...$ or $$...$$).

2. **Simulated Mathematical Proof:**
   - Provide a simplified, step-by-step mathematical walkthrough using one example qubit.
   - **You MUST use LaTeX for all mathematical notations.** Use notation like |0\rangle, |+\rangle.
   - Example: Alice sends $|0\rangle$. Eve intercepts and measures in the 'x' basis, collapsing the state to a superposition: $$|0\rangle = \frac{1}{\sqrt{2}}(|+\rangle + |-\rangle)$$. Show how this introduces errors.

` + answerFormat + `
`))

var e91Prompt = template.Must(template.New("e91").Funcs(funcs).Parse(`
You are a quantum communication expert providing analysis for a Quantum Key Distribution (QKD) simulator in {{.Language}}.
Analyze the following E91 protocol simulation results.

**Protocol:** E91 (Entanglement-based)

` + paramsBlock + `
**Your Tasks (respond in {{.Language}}):**

1. **Textual Analysis:**
   - Provide a step-by-step explanation of the E91 protocol based on this simulation. Use Markdown for formatting.
   - Start by explaining the core concept of **quantum entanglement** and Bell states.
   - Analyze the measured QBER. Explain that in E91, **any eavesdropping by Eve breaks the entanglement**, and how channel noise also destroys the perfect correlations.
   - Based on the selected noise model ({{.Params.NoiseModel}}), explain its physical meaning. If it is Depolarizing, contrast it with the simpler SimpleQBER (bit-flip) model and discuss why it is a more realistic simulation of environmental decoherence on one of the entangled particles.
   - Discuss the security of the final key, linking it conceptually to Bell's theorem.
   - Use LaTeX syntax for formulas.

2. **Simulated Mathematical Proof:**
   - **You MUST use LaTeX for all mathematical notations.**
   - Start with a Bell state, for example the singlet state: $$|\Psi^-\rangle = \frac{1}{\sqrt{2}}(|01\rangle - |10\rangle)$$.
   - Show that if Alice and Bob both measure in the same basis, their results are always anti-correlated.
   - Describe Eve's attack: she intercepts a particle and measures it. Explain that this **collapses the superposition** of the entire entangled system, which Alice and Bob detect.

` + answerFormat + `
`))

var educationPrompt = template.Must(template.New("education").Parse(`
You are a friendly and clear science communicator tasked with explaining Quantum Key Distribution to a complete beginner in {{.Language}}.
The user knows nothing about quantum physics. Use simple language and analogies.

**Protocol to Explain:** {{.Protocol}}

**Your Task:**
Create a step-by-step educational guide. The output MUST be a single JSON object with three keys: "prerequisites", "protocolSteps", and "securityAnalysis".

1. **"prerequisites":**
   - Explain what a **Qubit** is. Compare it to a classical bit. Use an analogy like a spinning coin.
   - Explain **Superposition**. Describe it as the qubit being in multiple states at once before measurement.
   - Explain **Measurement**. Describe how observing a qubit forces it into a definite state (0 or 1).
{{- if .Entangled}}
   - Explain **Entanglement**. Use the "magic twins" or "connected dice" analogy. Explain that measuring one instantly affects the other, no matter the distance.
{{- end}}
   - Use Markdown for formatting.

2. **"protocolSteps":**
   - Provide a simple, narrative, step-by-step walkthrough of the {{.Protocol}} protocol.
   - **Step 1:** Describe what Alice (the sender) does.
   - **Step 2:** Describe what Bob (the receiver) does.
   - **Step 3:** Describe their public discussion (comparing bases) to sift the key.
   - **Step 4:** Explain how Eve (the eavesdropper) trying to listen in gets detected.
   - Use a simple, non-technical story format.

3. **"securityAnalysis":**
   - Explain in one or two paragraphs *why* the protocol is secure, based on the fundamental principles of quantum mechanics.
   - For BB84, focus on the "Observer Effect" (measuring disturbs the system).
   - For E91, focus on "Breaking Entanglement" (eavesdropping destroys the perfect correlation).
   - Reassure the user that the security is backed by the laws of physics.

**Format your response as a single JSON object with the specified keys. Do not include any text outside the JSON object.**
`))

type analysisData struct {
	Language   string
	CountLabel string
	Params     qkd.Params
	Result     qkd.AggregatedResult
}

type educationData struct {
	Language  string
	Protocol  qkd.Protocol
	Entangled bool
}

// AnalysisPrompt renders the prompt asking for commentary on result.
func AnalysisPrompt(language string, p qkd.Params, result qkd.AggregatedResult) (string, error) {
	data := analysisData{Language: language, Params: p, Result: result}
	tmpl := bb84Prompt
	data.CountLabel = "Total qubits sent"
	if p.Protocol == qkd.E91 {
		tmpl = e91Prompt
		data.CountLabel = "Entangled pairs"
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// EducationPrompt renders the prompt asking for a beginner's guide to
// protocol.
func EducationPrompt(language string, protocol qkd.Protocol) (string, error) {
	var sb strings.Builder
	err := educationPrompt.Execute(&sb, educationData{
		Language:  language,
		Protocol:  protocol,
		Entangled: protocol == qkd.E91,
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
