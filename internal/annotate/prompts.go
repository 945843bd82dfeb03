package annotate

// inputPlaceholder is replaced with the serialized chunk payload before
// a prompt is sent.
const inputPlaceholder = "[input]"

const simplifyPrompt = `You are an expert in grammar and internet culture, specializing in simplifying questions from online forums for clarity and searchability.

Your task is to analyze a list of questions extracted from imageboard posts and perform the following:

1. **Simplify:** Condense each question to be more concise and explicit.
Slang and Internet jargon (like 'normie') should be retained, but irrelevant words should be removed.
Expand all contractions, like "isn't" to "is not".
The resulting question should be suitable for use in a search engine like Google.

* **Example 1:**
	* **Original:** "So anons, how'd you really think this whole thing got started?"
	* **Simplified:** "How did this get started?"
* **Example 2:**
	* **Original:** "Is there actually a reason to believe that QAnon is true?"
	* **Simplified:** "Is there a reason to believe QAnon is true?"

2. **Contextualize:** Resolve any implicit references and pronouns by referring to the provided "full_text", which includes the surrounding post content. If you are unsure, retain the original text.

* **Example:**
	* **Question:** "Do you think they are cheap?"
	* **Full Text:** "Let's talk about index funds. Do you think they're cheap?"
	* **Simplified:** "Do you think index funds are cheap?"

3. **Subject:** Extract the main subject of the question as a short noun phrase. If no clear subject exists, return an empty string.

**Input Format:**
A JSON array of questions, each with:

* "question": The original question extracted from the post.
* "full_text": The full text of the post containing the question.

**Output Format:**
A JSON object with a "results" array, one entry per input question:

* "question_simplified_contextualized": The simplified and contextualized question.
* "subject": The main subject of the question.

**Important:** If a question cannot be simplified or contextualized, return the original question in "question_simplified_contextualized".
Make sure to output the same number of values as input values.

Input:
'[input]'
`

const explicitPrompt = `You are an expert in internet language and online discussions, tasked with classifying questions from imageboard posts as either "explicit" or "implicit."

**Explicit Question:** A question with a clearly stated subject that can be understood without additional context. These may contain Internet slang but are typically suitable for web searches.

* **Examples:**
	* "What is the capital of France?"
	* "What are some good kino leftie YouTube channels?"
	* "What is the cheapest shotgun I can get?"

**Implicit Question:** A question that relies on context or implied information to be understood.
Search engines would likely struggle to understand the intent or context.

* **Examples:**
	* "Do you agree?"
	* "What do you think about it?"
	* "Can I have fries with that?"
	* "What is a better form of protest?"

**Instructions:**
Analyze each question from the provided list and determine if it is explicit or implicit.
If you're unsure or cannot categorise the question, label the question as explicit.
Make sure to output the EXACT number of output values as input values. THIS IS VERY IMPORTANT.

**Input Format:**
A newline-separated list of questions.

**Output Format:**
A JSON object with a "results" array, one entry per input question:

* "explicit": true if the question is explicit, false otherwise.

**Example Output:**
{"results": [{"question": "What is the capital of France?", "explicit": true}, {"question": "Is it true?", "explicit": false}]}

Input:
'[input]'
`
