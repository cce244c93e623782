package providers

// Prompt templates sent to the image providers. The bracketed section
// markers keep the instructions stable across models.

const clothesPromptBase = `[TASK]
Perform image editing: place the ITEM from the combined item image onto the PERSON in the person image as a natural try-on.
The combined item image contains multiple items arranged in a grid - treat them as separate items to try on.

[ASSETS]
- PERSON: keep face, body, lighting, and background unchanged.
- ITEMS: copy exactly from the item image, maintaining their individual characteristics and details.

[PLACEMENT]
Align each ITEM to the anatomically correct region; match scale, rotation, perspective; resolve occlusions.
Choose the most suitable item from the combined image for the person's pose and body type.

[CONSTRAINTS]
Preserve ITEM identity: exact color, material, texture, logos, patterns, fasteners.
Do not redesign or replace the ITEM. Do not alter PERSON identity or background. No extra accessories.

[STYLE]
Photorealistic blend; consistent shadows/highlights and noise.

[OUTPUT]
Return a single edited image where the chosen ITEM is clearly visible and naturally fitted on the PERSON.

[FAIL IF]
Never return an unchanged image. If uncertain, still place the most suitable ITEM as best as possible.

[NEGATIVE]
No fantasy variations, no color shifts, no new patterns, no brand swaps, no AI-art look.
`

const hairPromptBase = `[TASK]
Perform high-quality image editing: apply the HAIRSTYLE from the provided hairstyle image(s) onto the PERSON image as a natural, photorealistic hair try-on.

[ASSETS]
- PERSON: strictly preserve face identity, proportions, skin tone, lighting, and original background.
- HAIRSTYLE: replicate exactly the length, texture, curl pattern, density, color, highlights, and hairline.

[PLACEMENT]
Precisely align the HAIRSTYLE to the PERSON's head. Adjust scale, rotation, and perspective. Ensure seamless integration around forehead, temples, and ears. Respect occlusions (e.g., earrings, glasses, hats).

[BLENDING]
Smoothly merge hair edges with scalp. Preserve natural transparency in flyaway hairs. Match global and local lighting conditions, shadows, and reflections. Avoid hard edges or cutout look.

[CONSTRAINTS]
Do not modify the PERSON's facial identity, head shape, skin, or background. Do not alter hairstyle identity unless explicitly requested (no recoloring, redesigning, or shortening/lengthening).

[STYLE]
Ultra-photorealistic output. Maintain natural texture, volume, depth, and strand-level detail. Ensure hair looks realistic under the given lighting.

[OUTPUT]
Return a single, final edited image with the chosen HAIRSTYLE naturally and convincingly fitted onto the PERSON.

[NEGATIVE]
No cartoonish style, no artificial glow, no extra accessories, no distortions, no unrealistic blending or duplicated strands.
`

// BuildClothesPrompt renders the clothing try-on instruction, appending
// the user's free-text wishes when present.
func BuildClothesPrompt(userPrompt string) string {
	return appendUserSection(clothesPromptBase, userPrompt)
}

// BuildHairPrompt renders the hairstyle try-on instruction.
func BuildHairPrompt(userPrompt string) string {
	return appendUserSection(hairPromptBase, userPrompt)
}

func appendUserSection(base, userPrompt string) string {
	if userPrompt == "" {
		return base
	}
	return base + "\n[USER]\n" + userPrompt + "\n"
}
