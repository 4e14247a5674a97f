package vision

// TableInstruction is sent with every image. It asks the model for a strict JSON reply of the form
// {"is_table": bool, "confidence": 0..1, "table_data": [[string, ...], ...], "description": string}.
const TableInstruction = `请分析这张图片，判断它是否包含Excel表格或类似的表格结构。

如果是表格，请：
1. 确认这是表格
2. 提取表格的完整内容
3. 将内容组织成结构化的JSON格式

如果不是表格，请直接回复这不是表格。

表格格式要求：
- 使用二维数组表示表格数据
- 第一行通常是表头
- 保持原始数据的行和列结构
- 空单元格用空字符串表示
- 注意表格边框和网格线的识别

请用以下JSON格式回复：
{
    "is_table": true/false,
    "confidence": 0.0-1.0,
    "table_data": [
        ["表头1", "表头2", "表头3"],
        ["数据1", "数据2", "数据3"],
        ...
    ],
    "description": "表格的简要描述"
}

注意：请严格按JSON格式回复，不要包含其他文字说明。`

// ProbeText is the trivial prompt of the connectivity probe ("test connection")
const ProbeText = "测试连接"
