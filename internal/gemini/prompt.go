package gemini

import "fmt"

const baseInstructions = `Generate a high-quality image of the following scene: "%s".

VISUAL REQUIREMENTS:
1. NO WATERMARKS: the image must not contain any text, logos, signatures or watermarks.
2. HIGH FIDELITY: photorealistic, or a highly detailed artistic style when one is requested.
3. LIGHTING: cinematic, atmospheric lighting.`

const referenceInstructions = `

CHARACTER REFERENCE:
The attached image is a strict reference for the character.
- Render exactly the same character as the reference image.
- Keep the same facial features, hair style, hair color and body build.
- Place this character into the scene described above: "%s".
- Do not change the character's identity.`

// buildPrompt returns the text part sent alongside the user's scene.
func buildPrompt(scene string, withReference bool) string {
	text := fmt.Sprintf(baseInstructions, scene)
	if withReference {
		text += fmt.Sprintf(referenceInstructions, scene)
	}
	return text
}
