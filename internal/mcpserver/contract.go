package mcpserver

// EntryFormatContract describes journal entries for LLM consumers that read
// or create them.
const EntryFormatContract = `# Shunya Entry Format

A journal entry is a short piece of text with one overall mood, optional
state tags and at most one captioned image.

## Fields

- **text** (required): free text, must not be blank.
- **mood** (required): exactly one of ` + "`Good`, `Okay`, `Not Great`" + `.
- **states** (optional): any of ` + "`Focus`, `Energy`, `Clarity`, `Overwhelm`" + `,
  each at most once. Order is kept as given.
- **image** (optional): png, jpeg, gif or webp, sent as a base64 data URI
  (` + "`data:image/png;base64,...`" + `). The caption is optional.
- **id** and **created_at** are assigned by the journal and never change when
  an entry is edited.

## Markdown layout

` + "`read_entry`" + ` and the archive export use Markdown with YAML frontmatter:

` + "```" + `markdown
---
id: 3f1c2a9e-7b1d-4c55-9a43-0d3e2f6b8a10
created_at: "2025-01-20T07:45:12.123456789Z"
mood: Okay
states:
    - Focus
    - Clarity
image: images/3f1c2a9e-7b1d-4c55-9a43-0d3e2f6b8a10.png
caption: Morning light on the desk
---

Slept badly but the walk helped.
` + "```" + `

Files dropped into the archive inbox may omit ` + "`id`" + ` and ` + "`created_at`" + `;
the file modification time is then used as the creation time.

## Rules

1. Entries are listed newest first.
2. Deleting an entry is permanent; deleting an unknown id is not an error.
3. Editing keeps the id and creation time and replaces text, mood, states and image.
`
