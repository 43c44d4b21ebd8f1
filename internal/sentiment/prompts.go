package sentiment

import (
	"fmt"
	"strings"
)

// classifyInstructions builds the zero-shot classification instruction,
// switching to Chinese for Chinese input to keep small models accurate.
func classifyInstructions(text string) string {
	labels := strings.Join(Emotions, ", ")
	if ContainsChinese(text) {
		return fmt.Sprintf(`你是一个心理分析专家。请判断用户输入中隐含的最主要情绪，并必须从以下列表中选择一个：%s。

判断指南：
1. 隐含情绪：不要只看表面词汇。如果用户描述了损失、失败或分离（如“分手”、“挂科”），即使语气平淡，也应归类为 sadness。
2. 中性场景：只有普通的问候或信息询问才是 neutral。
3. 输出格式：仅返回一个 JSON 对象，形如 {"emotion": "label", "confidence": 0.95}。`, labels)
	}
	return fmt.Sprintf(`You are an expert psychological analyst. Classify the underlying emotion of the user input into EXACTLY ONE of these categories: %s.

Guidelines:
1. Implicit emotion: look beyond keywords. If the user describes a loss (e.g. "break up", "failed"), it is sadness even without sad words.
2. Context: greetings or simple questions are neutral.
3. Output format: respond ONLY with a JSON object of the form {"emotion": "label", "confidence": 0.95}.`, labels)
}

// explainInstructions builds the explanation instruction for the XAI
// condition. The explanation is written in the third person so it reads as
// the system describing its own state.
func explainInstructions(emotion string) string {
	return fmt.Sprintf(`Analyze the given user input and the detected emotion.

Task: explain briefly (1-2 sentences) why the user's emotion is categorized as '%s' and what the agent's goal is for the next response to support them. Write the explanation in the third person (e.g. "The system detects...", "The agent aims to..."). Keep it concise and objective.`, emotion)
}
