// Package localization holds the UI string tables for the experiment
// pages. Strings are grouped by page module and language; English is the
// fallback for any missing language or key set.
package localization

// DefaultLanguage is used when a participant's language is unknown.
const DefaultLanguage = "en"

// Strings is one page's localized key/value set.
type Strings map[string]string

var tables = map[string]map[string]Strings{
	"global": {
		"en": {
			"continue_to_next":  "Continue to Next Step",
			"saving_data":       "Saving Data...",
			"loading_chat":      "Loading Chat Interface...",
			"error_pid_missing": "Error: Participant ID missing. Please start over.",
			"error_save":        "Unknown error during data save.",
		},
		"zh-CN": {
			"continue_to_next":  "继续下一步",
			"saving_data":       "正在保存数据...",
			"loading_chat":      "正在加载聊天界面...",
			"error_pid_missing": "错误：缺少参与者ID。请重新开始。",
			"error_save":        "数据保存期间发生未知错误。",
		},
	},
	"consent": {
		"en": {
			"title":          "Research Experiment: Informed Consent Confirmation",
			"checkbox_label": "I have read and understood the summary above, and I confirm I consent to continue with this study.",
			"button_text":    "I Agree and Continue",
			"checkbox_error": "Please check the box to confirm your consent.",
		},
		"zh-CN": {
			"title":          "研究实验：知情同意书确认",
			"checkbox_label": "我已阅读并理解上述摘要，并确认我同意继续参与本研究。",
			"button_text":    "我同意并继续",
			"checkbox_error": "请勾选此框以确认您的同意。",
		},
	},
	"demographics": {
		"en": {
			"title":     "Demographics Survey",
			"intro":     "Please provide the following basic information about yourself.",
			"q1_age":    "1. Age (in years):",
			"q2_gender": "2. Gender:",
		},
		"zh-CN": {
			"title":     "人口统计问卷",
			"intro":     "请提供以下关于您的基本信息。",
			"q1_age":    "1. 年龄（岁）：",
			"q2_gender": "2. 性别：",
		},
	},
	"baseline_mood": {
		"en": {
			"title": "Baseline Mood Assessment",
			"intro": "Please rate how you feel right now.",
		},
		"zh-CN": {
			"title": "基线情绪评估",
			"intro": "请评估您此刻的感受。",
		},
	},
	"instructions": {
		"en": {
			"title":      "Task Instructions",
			"start_chat": "Start the Conversation",
		},
		"zh-CN": {
			"title":      "任务说明",
			"start_chat": "开始对话",
		},
	},
	"dialogue": {
		"en": {
			"title":       "Chat with the Agent",
			"placeholder": "Type your message...",
			"end_button":  "End Conversation",
		},
		"zh-CN": {
			"title":       "与 Agent 对话",
			"placeholder": "输入您的消息...",
			"end_button":  "结束对话",
		},
	},
	"post_questionnaire": {
		"en": {
			"title": "Post-Dialogue Questionnaire",
			"intro": "Please answer the following questions about the conversation you just had.",
		},
		"zh-CN": {
			"title": "对话后问卷",
			"intro": "请回答以下关于您刚刚进行的对话的问题。",
		},
	},
	"washout": {
		"en": {
			"title": "Short Break",
			"intro": "Please take a short rest before the next part of the study. The continue button unlocks after the timer ends.",
		},
		"zh-CN": {
			"title": "短暂休息",
			"intro": "在进入研究的下一部分之前，请稍作休息。计时结束后继续按钮才会解锁。",
		},
	},
	"open_ended_qs": {
		"en": {
			"title": "Open-Ended Questions",
			"intro": "Please describe your experience in your own words.",
		},
		"zh-CN": {
			"title": "开放式问题",
			"intro": "请用您自己的话描述您的体验。",
		},
	},
	"debrief": {
		"en": {
			"title":  "Study Debrief",
			"thanks": "Thank you for participating in this study.",
		},
		"zh-CN": {
			"title":  "实验说明",
			"thanks": "感谢您参与本研究。",
		},
	},
}

// ForPage returns the merged global + page strings for a language, falling
// back to English per key set when the language is missing.
func ForPage(module, language string) Strings {
	merged := Strings{}
	for _, m := range []string{"global", module} {
		langs, ok := tables[m]
		if !ok {
			continue
		}
		s, ok := langs[language]
		if !ok {
			s = langs[DefaultLanguage]
		}
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}
